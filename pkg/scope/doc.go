// Package scope carries the per-request tenant identity through context.
//
// A Scope is created once, right after tenant resolution, and bound to the
// request context with Bind. From then on it is immutable: binding a
// different tenant over an existing scope fails with ErrScopeConflict, and
// there is no ambient or global tenant state to fall back on. Code that
// needs the current tenant asks the context, and code that has no scoped
// context has no tenant.
//
// Background work spawned from a request must not borrow the request
// context directly, because cancellation would kill the job and, with it,
// the tenant identity. Detach and Go exist for exactly this: they capture
// the scope at spawn time on a fresh background context.
//
//	scope.Go(r.Context(), func(ctx context.Context) {
//		// still knows the tenant, no longer tied to the request
//		reindex(ctx)
//	})
package scope
