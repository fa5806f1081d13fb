package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestResolveCreatesWhenUnknown(t *testing.T) {
	s := NewStore(time.Minute)

	created := s.Resolve("", "dev-a")
	if created.ID == "" {
		t.Fatalf("generated session id should not be empty")
	}
	if created.DeviceID != "dev-a" {
		t.Fatalf("DeviceID = %q, want %q", created.DeviceID, "dev-a")
	}
	if !created.CreatedAt.Equal(created.LastTurnAt) {
		t.Fatalf("fresh session should have CreatedAt == LastTurnAt")
	}

	named := s.Resolve("session-7", "dev-b")
	if named.ID != "session-7" {
		t.Fatalf("ID = %q, want caller-supplied %q", named.ID, "session-7")
	}
}

func TestResolveRefreshesKnownSession(t *testing.T) {
	s := NewStore(time.Minute)

	first := s.Resolve("", "dev-a")
	time.Sleep(5 * time.Millisecond)
	second := s.Resolve(first.ID, "dev-other")

	if second.ID != first.ID {
		t.Fatalf("resolved a different session: %q vs %q", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("CreatedAt changed on refresh")
	}
	if second.DeviceID != "dev-a" {
		t.Fatalf("DeviceID = %q, want original %q", second.DeviceID, "dev-a")
	}
	if second.LastTurnAt.Before(first.LastTurnAt) {
		t.Fatalf("LastTurnAt went backwards: %v -> %v", first.LastTurnAt, second.LastTurnAt)
	}
	if !second.LastTurnAt.After(first.LastTurnAt) {
		t.Fatalf("LastTurnAt was not refreshed")
	}
}

func TestResolveConcurrentSameNewID(t *testing.T) {
	s := NewStore(time.Minute)

	const turns = 32
	var wg sync.WaitGroup
	results := make([]*Session, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Resolve("session-race", "dev-a")
		}(i)
	}
	wg.Wait()

	if s.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1", s.ActiveCount())
	}
	created := results[0].CreatedAt
	for _, r := range results {
		if !r.CreatedAt.Equal(created) {
			t.Fatalf("observed two distinct creation times: %v vs %v", created, r.CreatedAt)
		}
	}
}

func TestGetUnknownSession(t *testing.T) {
	s := NewStore(time.Minute)
	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Fatalf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestJanitorEvictsIdleSessions(t *testing.T) {
	s := NewStore(30 * time.Millisecond)

	var evicted []string
	var mu sync.Mutex
	s.SetEvictHook(func(sess *Session) {
		mu.Lock()
		evicted = append(evicted, sess.ID)
		mu.Unlock()
	})

	sess := s.Resolve("", "dev-a")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := s.Get(sess.ID); err == ErrNotFound {
			mu.Lock()
			defer mu.Unlock()
			if len(evicted) != 1 || evicted[0] != sess.ID {
				t.Fatalf("evict hook saw %v, want [%s]", evicted, sess.ID)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session was never evicted")
}
