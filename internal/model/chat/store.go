package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Window selects which slice of a session's turns a query returns. Results
// are always ordered oldest first.
type Window struct {
	Limit int
	// Latest keeps the newest Limit turns instead of the earliest.
	Latest bool
}

// First selects the earliest n turns.
func First(n int) Window {
	return Window{Limit: n}
}

// Latest selects the newest n turns.
func Latest(n int) Window {
	return Window{Limit: n, Latest: true}
}

// TurnStore persists turns. There are no update or delete paths.
type TurnStore interface {
	// InsertTurn writes one turn, stamping CreatedAt when it is zero.
	InsertTurn(ctx context.Context, turn Turn) (Turn, error)
	// FindBySession returns the window of a session's turns, oldest first.
	// An unknown session yields an empty slice.
	FindBySession(ctx context.Context, sessionID string, window Window) ([]Turn, error)
	// Probe writes a connectivity probe document and returns its id.
	Probe(ctx context.Context) (string, error)
}

// MemoryStore implements TurnStore in process memory, suitable for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		turns: make(map[string][]Turn),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// InsertTurn appends a turn to the session.
func (s *MemoryStore) InsertTurn(_ context.Context, turn Turn) (Turn, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	s.mu.Unlock()

	return turn, nil
}

// FindBySession returns the selected turns of a session in ascending time order.
func (s *MemoryStore) FindBySession(_ context.Context, sessionID string, window Window) ([]Turn, error) {
	s.mu.RLock()
	stored := s.turns[sessionID]
	copied := make([]Turn, len(stored))
	copy(copied, stored)
	s.mu.RUnlock()

	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].CreatedAt.Before(copied[j].CreatedAt)
	})

	if window.Limit > 0 && len(copied) > window.Limit {
		if window.Latest {
			copied = copied[len(copied)-window.Limit:]
		} else {
			copied = copied[:window.Limit]
		}
	}
	return copied, nil
}

// Probe has nothing to reach; it only hands back a fresh identifier.
func (s *MemoryStore) Probe(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// Count reports how many turns a session holds.
func (s *MemoryStore) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[sessionID])
}
