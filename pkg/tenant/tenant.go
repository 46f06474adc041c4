package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a tenant. Only active tenants resolve;
// every other state is rejected at the boundary before any data access.
type State string

const (
	StateProvisioning State = "provisioning"
	StateActive       State = "active"
	StateSuspended    State = "suspended"
	StateDeleted      State = "deleted"
)

// Resolvable reports whether requests for a tenant in this state may proceed.
func (s State) Resolvable() bool {
	return s == StateActive
}

// Tenant carries the minimal tenant identity needed on the request path.
// The full directory record, including credentials and quota assignments,
// stays behind the Directory interface.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Subdomain    string    `json:"subdomain"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	State        State     `json:"state"`
	PlanID       string    `json:"plan_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// KeyType discriminates the unique identifiers a tenant can be looked up by.
type KeyType string

const (
	// KeyTypeID is the tenant UUID itself, used by the authenticated
	// header strategy and by internal services.
	KeyTypeID KeyType = "id"

	// KeyTypeSubdomain is the tenant's subdomain label under the base domain.
	KeyTypeSubdomain KeyType = "subdomain"

	// KeyTypeCustomDomain is a full custom hostname registered for the tenant.
	KeyTypeCustomDomain KeyType = "custom_domain"

	// KeyTypeAPIKeyHash is the keyed hash of an API credential. Raw
	// credentials never reach the directory.
	KeyTypeAPIKeyHash KeyType = "api_key_hash"
)

// Key is a single typed resolution identifier. Uniqueness is enforced per
// type, so one key matches at most one tenant.
type Key struct {
	Type  KeyType
	Value string
}

// IsZero reports whether the key is empty, meaning a strategy did not apply.
func (k Key) IsZero() bool {
	return k.Type == "" && k.Value == ""
}

// String renders the key in "type:value" form, stable for cache keys.
func (k Key) String() string {
	return string(k.Type) + ":" + k.Value
}

// Directory is the authoritative source of tenant records, keyed by any of
// the unique resolution identifiers. Implementations must treat lookup by a
// key that matches no tenant as ErrNotFound, never as a partial match.
type Directory interface {
	// LookupByKey returns the tenant a key belongs to, regardless of the
	// tenant's lifecycle state. Callers decide what non-active states mean.
	LookupByKey(ctx context.Context, key Key) (*Tenant, error)

	// State returns the current lifecycle state of a tenant. It is the
	// cheap call used to re-validate cached resolutions.
	State(ctx context.Context, tenantID uuid.UUID) (State, error)
}
