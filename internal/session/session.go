// Package session persists conversation state between requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klamlamwork/playroom/internal/dialogue"
	"github.com/klamlamwork/playroom/pkg/metrics"
)

var (
	// ErrNotFound is returned when no live state exists for a key.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidID is returned for session ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid session id")
)

// Key scopes a conversation to the user that owns it.
type Key struct {
	UserID    int64
	SessionID string
}

// NewKey builds a key from any UUID spelling; the id is kept in canonical
// lowercase hyphenated form.
func NewKey(userID int64, sessionID string) (Key, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return Key{}, ErrInvalidID
	}
	return Key{UserID: userID, SessionID: id.String()}, nil
}

func (k Key) String() string {
	return fmt.Sprintf("%d.%s", k.UserID, k.SessionID)
}

// Store loads and saves conversation state by key.
type Store interface {
	Load(ctx context.Context, key Key) (dialogue.State, error)
	Save(ctx context.Context, key Key, state dialogue.State) error
	Delete(ctx context.Context, key Key) error
}

type entry struct {
	state   dialogue.State
	expires time.Time
}

// MemoryStore keeps sessions in process memory with a sliding TTL.
type MemoryStore struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
	mu      sync.RWMutex
}

// NewMemoryStore creates a memory store. A zero ttl keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Load returns a copy of the stored state.
func (s *MemoryStore) Load(ctx context.Context, key Key) (dialogue.State, error) {
	s.mu.RLock()
	e, ok := s.entries[key.String()]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return dialogue.State{}, ErrNotFound
	}
	return e.state.Clone(), nil
}

// Save stores a copy of state and refreshes its expiry.
func (s *MemoryStore) Save(ctx context.Context, key Key, state dialogue.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{state: state.Clone()}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.entries[key.String()] = e
	metrics.SessionsActive.Set(float64(len(s.entries)))
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key.String())
	metrics.SessionsActive.Set(float64(len(s.entries)))
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, k)
			removed++
		}
	}
	metrics.SessionsActive.Set(float64(len(s.entries)))
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryStore) expired(e entry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}
