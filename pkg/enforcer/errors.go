package enforcer

import "errors"

var (
	// ErrUnscopedQuery is returned when a data-access call carries no
	// tenant filter. The query is refused before it reaches the database;
	// there is no unscoped escape hatch.
	ErrUnscopedQuery = errors.New("query carries no tenant filter")

	// ErrEnforcementFault is returned when the two enforcement layers
	// disagree: a filter or the connection setting names a tenant other
	// than the active scope. The transaction is dead, the event escalated,
	// and the fault is never retried.
	ErrEnforcementFault = errors.New("tenant isolation enforcement fault")

	// ErrInfrastructure is returned for pool checkout and transaction
	// plumbing failures. Unlike a fault it is retryable and carries no
	// isolation implications.
	ErrInfrastructure = errors.New("data access infrastructure unavailable")

	// ErrInvalidIdentifier is returned by policy helpers for table or
	// column names that are not plain lowercase identifiers.
	ErrInvalidIdentifier = errors.New("invalid sql identifier")
)
