package audit

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Criteria filters audit queries. Zero values mean "any".
type Criteria struct {
	TenantID uuid.UUID
	Action   string
	Result   Result
	Since    time.Time
	Until    time.Time
	Limit    int
}

func (c Criteria) matches(e Event) bool {
	if c.TenantID != uuid.Nil && e.TenantID != c.TenantID {
		return false
	}
	if c.Action != "" && e.Action != c.Action {
		return false
	}
	if c.Result != "" && e.Result != c.Result {
		return false
	}
	if !c.Since.IsZero() && e.CreatedAt.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && e.CreatedAt.After(c.Until) {
		return false
	}
	return true
}

// MemoryStorage keeps events in a slice. For tests and single-node
// development only; nothing is persisted.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStorage) StoreBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Query returns events matching the criteria, newest first.
func (s *MemoryStorage) Query(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if !c.matches(s.events[i]) {
			continue
		}
		out = append(out, s.events[i])
		if c.Limit > 0 && len(out) >= c.Limit {
			break
		}
	}
	return out, nil
}

// Events returns a snapshot of everything stored, in insertion order.
func (s *MemoryStorage) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}
