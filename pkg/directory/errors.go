package directory

import "errors"

var (
	// ErrKeyTaken is returned when a resolution key is already bound to
	// another tenant. Keys are unique per type; there is no sharing and no
	// ambiguity by construction.
	ErrKeyTaken = errors.New("resolution key already bound to a tenant")

	// ErrInvalidRecord is returned when a provisioning input fails
	// validation before it reaches the store.
	ErrInvalidRecord = errors.New("invalid tenant record")

	// ErrInvalidTransition is returned for lifecycle transitions that make
	// no sense, such as resuming a deleted tenant.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrCacheInvalidation is returned when a lifecycle write landed but
	// the resolution cache could not be invalidated. The write must not be
	// reported as complete while stale entries may still resolve.
	ErrCacheInvalidation = errors.New("resolution cache invalidation failed")
)
