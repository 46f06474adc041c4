package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Record is the authoritative directory row for a tenant. The request path
// never sees it directly; it is projected down to tenant.Tenant so
// credentials and administrative fields stay behind the directory.
type Record struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Subdomain    string       `json:"subdomain"`
	CustomDomain string       `json:"custom_domain,omitempty"`
	APIKeyHash   string       `json:"-"`
	State        tenant.State `json:"state"`
	PlanID       string       `json:"plan_id"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	DeletedAt    *time.Time   `json:"deleted_at,omitempty"`
}

// Tenant projects the record down to the request-path value.
func (r *Record) Tenant() tenant.Tenant {
	return tenant.Tenant{
		ID:           r.ID,
		Name:         r.Name,
		Subdomain:    r.Subdomain,
		CustomDomain: r.CustomDomain,
		State:        r.State,
		PlanID:       r.PlanID,
		CreatedAt:    r.CreatedAt,
	}
}

// Keys returns the resolution keys currently derivable from the record.
func (r *Record) Keys() []tenant.Key {
	keys := []tenant.Key{
		{Type: tenant.KeyTypeID, Value: r.ID.String()},
		{Type: tenant.KeyTypeSubdomain, Value: r.Subdomain},
	}
	if r.CustomDomain != "" {
		keys = append(keys, tenant.Key{Type: tenant.KeyTypeCustomDomain, Value: r.CustomDomain})
	}
	if r.APIKeyHash != "" {
		keys = append(keys, tenant.Key{Type: tenant.KeyTypeAPIKeyHash, Value: r.APIKeyHash})
	}
	return keys
}
