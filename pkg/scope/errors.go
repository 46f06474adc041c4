package scope

import "errors"

var (
	// ErrNoScope is returned when an operation requires a bound tenant scope
	// and the context does not carry one.
	ErrNoScope = errors.New("no tenant scope in context")

	// ErrInvalidScope is returned when trying to bind a scope without a tenant.
	ErrInvalidScope = errors.New("scope has no tenant")

	// ErrScopeConflict is returned when binding would replace an existing scope
	// that belongs to a different tenant. A unit of work is never re-tenanted.
	ErrScopeConflict = errors.New("context already scoped to another tenant")
)
