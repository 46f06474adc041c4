package scope

import "context"

// Detach returns a context rooted in context.Background that carries only
// the caller's scope. Deadlines, cancellation, and every other context value
// are dropped. Background work derived from a request must use a detached
// context so it keeps the tenant identity captured at spawn time instead of
// dying with the request or, worse, running unscoped.
//
// If ctx carries no scope, Detach returns a plain background context.
func Detach(ctx context.Context) context.Context {
	s, ok := FromContext(ctx)
	if !ok {
		return context.Background()
	}

	// Bind cannot conflict on a fresh context.
	detached, _ := Bind(context.Background(), s)
	return detached
}

// Go runs fn on a goroutine with a detached context. The goroutine keeps the
// caller's tenant scope but outlives the caller's cancellation, which is what
// fire-and-forget work spawned from request handlers needs.
func Go(ctx context.Context, fn func(ctx context.Context)) {
	detached := Detach(ctx)
	go fn(detached)
}
