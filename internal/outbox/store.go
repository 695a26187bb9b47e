package outbox

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Kavirubc/cofound/pkg/models"
)

// Entry is a swipe decision waiting to be redelivered
type Entry struct {
	// ID is models.DecisionKey(UserID, TargetID)
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	TargetID      string              `json:"target_user_id"`
	Kind          models.DecisionKind `json:"decision"`
	Attempts      int                 `json:"attempts"`
	NextAttemptAt time.Time           `json:"next_attempt_at"`
	CreatedAt     time.Time           `json:"created_at"`
	LastError     string              `json:"last_error,omitempty"`
}

// Store persists outbox entries
type Store interface {
	// Put inserts or replaces the entry with the same ID
	Put(ctx context.Context, e Entry) error
	// Due returns up to limit entries whose NextAttemptAt is not after now,
	// earliest first
	Due(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	Delete(ctx context.Context, id string) error
	// List returns every entry ordered by creation time
	List(ctx context.Context) ([]Entry, error)
}

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	return nil
}

func (s *MemoryStore) Due(_ context.Context, now time.Time, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Entry
	for _, e := range s.entries {
		if !e.NextAttemptAt.After(now) {
			due = append(due, e)
		}
	}
	slices.SortFunc(due, func(a, b Entry) int {
		return a.NextAttemptAt.Compare(b.NextAttemptAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
