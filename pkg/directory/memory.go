package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// keyRow mirrors a resolution_keys row: which tenant a key binds to and
// when rotation invalidated it, if ever.
type keyRow struct {
	tenantID      uuid.UUID
	invalidatedAt *time.Time
}

// MemoryStore is the in-process Store used by tests and single-node
// development setups. Semantics match PGStore, including rotation grace.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	keys    map[string]*keyRow
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*Record),
		keys:    make(map[string]*keyRow),
	}
}

func (s *MemoryStore) Create(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range rec.Keys() {
		if row, ok := s.keys[key.String()]; ok && row.invalidatedAt == nil && row.tenantID != rec.ID {
			return ErrKeyTaken
		}
	}

	cp := *rec
	s.records[rec.ID] = &cp
	for _, key := range rec.Keys() {
		s.keys[key.String()] = &keyRow{tenantID: rec.ID}
	}
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) GetByKey(_ context.Context, key tenant.Key, graceCutoff time.Time) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.keys[key.String()]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	if row.invalidatedAt != nil && !row.invalidatedAt.After(graceCutoff) {
		return nil, tenant.ErrNotFound
	}

	rec, ok := s.records[row.tenantID]
	if !ok {
		return nil, tenant.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) State(_ context.Context, id uuid.UUID) (tenant.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return "", tenant.ErrNotFound
	}
	return rec.State, nil
}

func (s *MemoryStore) UpdateState(_ context.Context, id uuid.UUID, state tenant.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return tenant.ErrNotFound
	}

	now := time.Now()
	rec.State = state
	rec.UpdatedAt = now
	if state == tenant.StateDeleted {
		rec.DeletedAt = &now
	}
	return nil
}

func (s *MemoryStore) RotateAPIKey(_ context.Context, id uuid.UUID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return tenant.ErrNotFound
	}
	if row, ok := s.keys[(tenant.Key{Type: tenant.KeyTypeAPIKeyHash, Value: newHash}).String()]; ok && row.invalidatedAt == nil {
		return ErrKeyTaken
	}

	now := time.Now()
	if rec.APIKeyHash != "" {
		old := tenant.Key{Type: tenant.KeyTypeAPIKeyHash, Value: rec.APIKeyHash}
		if row, ok := s.keys[old.String()]; ok {
			row.invalidatedAt = &now
		}
	}

	rec.APIKeyHash = newHash
	rec.UpdatedAt = now
	s.keys[(tenant.Key{Type: tenant.KeyTypeAPIKeyHash, Value: newHash}).String()] = &keyRow{tenantID: id}
	return nil
}
