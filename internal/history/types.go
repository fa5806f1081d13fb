package history

import (
	"context"
	"time"
)

// TurnEntry records one side of a completed turn for later inspection.
type TurnEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	DeviceID  string    `json:"device_id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves turn transcripts.
type Store interface {
	Append(ctx context.Context, entry TurnEntry) error
	Recent(ctx context.Context, sessionID string, limit int) ([]TurnEntry, error)
	Close() error
}
