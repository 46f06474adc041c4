package tenant

import "errors"

var (
	// ErrMalformedSignal is returned when a resolution signal fails syntactic
	// validation. A malformed signal aborts resolution outright; it is never
	// partially matched and never falls through to lower-priority strategies.
	ErrMalformedSignal = errors.New("malformed tenant signal")

	// ErrUnresolved is returned when no strategy produced a key, or the key
	// matched no tenant. Externally it is indistinguishable from a malformed
	// or inactive tenant.
	ErrUnresolved = errors.New("tenant could not be resolved")

	// ErrNotFound is returned by Directory implementations when a key
	// matches no tenant.
	ErrNotFound = errors.New("tenant not found")

	// ErrInactive is returned when the resolved tenant exists but is not in
	// an active state. Suspended and deleted tenants reject identically.
	ErrInactive = errors.New("tenant is not active")

	// ErrDirectoryUnavailable is returned when the tenant directory cannot
	// be reached. It is an infrastructure failure, retryable by the caller,
	// and never resolves a tenant on a best-effort basis.
	ErrDirectoryUnavailable = errors.New("tenant directory unavailable")

	// ErrNoTenant is returned by RequireScope when a request reaches a
	// guarded handler without a bound tenant.
	ErrNoTenant = errors.New("no tenant in request context")
)
