package tenant

import "context"

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// WithContext attaches the resolved tenant to the context. The middleware
// is the only intended caller; handlers read, they never rebind.
func WithContext(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tenant resolved for this request, if any. The
// returned value is a copy; mutating it changes nothing.
func FromContext(ctx context.Context) (Tenant, bool) {
	t, ok := ctx.Value(contextKey{}).(Tenant)
	return t, ok
}
