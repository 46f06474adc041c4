package directory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Store persists tenant records and their resolution keys. Lookups by a key
// that matches nothing return tenant.ErrNotFound; a key can never match more
// than one tenant because uniqueness is enforced per key type at the store.
//
// Stores are dumb: lifecycle policy, key hashing, and cache invalidation
// live in Service, the only supported mutation path.
type Store interface {
	// Create inserts a record together with its resolution keys.
	// A key already bound to another tenant fails with ErrKeyTaken.
	Create(ctx context.Context, rec *Record) error

	// GetByID returns a record regardless of lifecycle state.
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// GetByKey returns the record a resolution key is bound to. Keys
	// invalidated by rotation still match until graceCutoff, so in-flight
	// cache entries drain instead of failing mid-request.
	GetByKey(ctx context.Context, key tenant.Key, graceCutoff time.Time) (*Record, error)

	// State returns only the lifecycle state. It is the cheap call on the
	// cache-revalidation path.
	State(ctx context.Context, id uuid.UUID) (tenant.State, error)

	// UpdateState transitions the lifecycle state. Deleted is terminal and
	// soft: the record and its audit trail survive.
	UpdateState(ctx context.Context, id uuid.UUID, state tenant.State) error

	// RotateAPIKey swaps the stored credential hash: the old key row is
	// stamped invalidated (not deleted), the new one inserted.
	RotateAPIKey(ctx context.Context, id uuid.UUID, newHash string) error
}
