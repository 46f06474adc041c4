package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/directory"
)

// ProvisionRequest is the payload for creating a tenant.
type ProvisionRequest struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain,omitempty"`
	PlanID       string `json:"plan_id,omitempty"`
}

// TenantResponse is the administrative view of a tenant record. The API
// key hash never leaves the directory.
type TenantResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Subdomain    string     `json:"subdomain"`
	CustomDomain string     `json:"custom_domain,omitempty"`
	State        string     `json:"state"`
	PlanID       string     `json:"plan_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// ProvisionResponse carries the new tenant and its raw API key. The key
// is returned exactly once and never retrievable afterwards.
type ProvisionResponse struct {
	Tenant TenantResponse `json:"tenant"`
	APIKey string         `json:"api_key"`
}

// RotateKeyResponse carries a freshly rotated raw API key, also shown
// exactly once.
type RotateKeyResponse struct {
	APIKey string `json:"api_key"`
}

func tenantResponse(rec *directory.Record) TenantResponse {
	return TenantResponse{
		ID:           rec.ID,
		Name:         rec.Name,
		Subdomain:    rec.Subdomain,
		CustomDomain: rec.CustomDomain,
		State:        string(rec.State),
		PlanID:       rec.PlanID,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		DeletedAt:    rec.DeletedAt,
	}
}
