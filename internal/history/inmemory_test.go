package history

import (
	"context"
	"testing"
)

func TestInMemoryAppendAndRecent(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, content := range []string{"first", "second", "third"} {
		if err := s.Append(ctx, TurnEntry{SessionID: "s-1", Role: "user", Content: content}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := s.Append(ctx, TurnEntry{SessionID: "s-2", Role: "user", Content: "other"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := s.Recent(ctx, "s-1", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "second" || got[1].Content != "third" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Fatalf("entry fields not filled in: %+v", got[0])
	}

	all, err := s.Recent(ctx, "s-1", 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len with limit 0 = %d, want 3", len(all))
	}

	empty, err := s.Recent(ctx, "unknown", 5)
	if err != nil || empty != nil {
		t.Fatalf("Recent(unknown) = %v, %v; want nil, nil", empty, err)
	}
}
