package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is the continuity token tying consecutive turns together.
type Session struct {
	ID         string    `json:"session_id"`
	DeviceID   string    `json:"device_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastTurnAt time.Time `json:"last_turn_at"`
}

// Store holds per-conversation state in memory. Sessions are created on
// first reference and evicted after an idle timeout by the janitor.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	onEvict     func(*Session)
}

func NewStore(idleTimeout time.Duration) *Store {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
	}
}

func (s *Store) SetEvictHook(hook func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = hook
}

// Start creates a fresh session for an explicit session-start request.
func (s *Store) Start(deviceID string) *Session {
	now := time.Now().UTC()
	sess := &Session{
		ID:         uuid.NewString(),
		DeviceID:   deviceID,
		CreatedAt:  now,
		LastTurnAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return clone(sess)
}

// Resolve is the atomic upsert used on every turn: an absent or unknown
// id creates a session, a known id refreshes its last-turn time leaving
// the creation time and owning device untouched. Two concurrent first
// turns for the same new id end up extending one record, never two.
func (s *Store) Resolve(sessionID, deviceID string) *Session {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if sess, ok := s.sessions[sessionID]; ok {
			if now.After(sess.LastTurnAt) {
				sess.LastTurnAt = now
			}
			return clone(sess)
		}
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess := &Session{
		ID:         sessionID,
		DeviceID:   deviceID,
		CreatedAt:  now,
		LastTurnAt: now,
	}
	s.sessions[sessionID] = sess
	return clone(sess)
}

func (s *Store) Get(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess), nil
}

func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartJanitor evicts idle sessions on a fixed interval until ctx ends.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle()
			}
		}
	}()
}

func (s *Store) evictIdle() {
	now := time.Now().UTC()
	var evicted []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.LastTurnAt) < s.idleTimeout {
			continue
		}
		delete(s.sessions, id)
		evicted = append(evicted, clone(sess))
	}
	hook := s.onEvict
	s.mu.Unlock()

	if hook != nil {
		for _, sess := range evicted {
			hook(sess)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
