package requestid

import "context"

type contextKey struct{}

// WithContext binds a request ID to the context. Normally done once, by the
// middleware; audit and log extractors read it back from there.
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the bound request ID, or "" when the request never
// passed through the middleware.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, ok := ctx.Value(contextKey{}).(string)
	if !ok {
		return ""
	}
	return requestID
}
