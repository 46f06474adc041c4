package scope

import (
	"time"

	"github.com/google/uuid"
)

// Method identifies how a tenant scope was established.
type Method string

const (
	// MethodAPIKey means the scope came from a validated API credential.
	MethodAPIKey Method = "api_key"

	// MethodHeader means the scope came from an authenticated tenant header.
	MethodHeader Method = "header"

	// MethodSubdomain means the scope came from a subdomain of the base domain.
	MethodSubdomain Method = "subdomain"

	// MethodCustomDomain means the scope came from a registered custom domain.
	MethodCustomDomain Method = "custom_domain"

	// MethodSystem marks scopes created by trusted internal jobs
	// (migrations, schedulers) rather than inbound requests.
	MethodSystem Method = "system"
)

// Scope is the immutable tenant identity attached to a unit of work.
// It is established exactly once per request, after resolution, and travels
// with the context from that point on. Nothing downstream may replace it.
type Scope struct {
	TenantID   uuid.UUID
	Method     Method
	ResolvedAt time.Time
}

// New builds a scope for the given tenant, stamped with the current time.
func New(tenantID uuid.UUID, method Method) Scope {
	return Scope{
		TenantID:   tenantID,
		Method:     method,
		ResolvedAt: time.Now(),
	}
}

// Valid reports whether the scope carries a usable tenant identity.
func (s Scope) Valid() bool {
	return s.TenantID != uuid.Nil
}
