package clientip

import "context"

type contextKey struct{}

// WithContext stores the resolved client IP in ctx.
func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the client IP placed by Middleware, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// Extractor adapts FromContext to the (value, ok) shape the audit logger
// consumes.
func Extractor(ctx context.Context) (string, bool) {
	ip := FromContext(ctx)
	return ip, ip != ""
}
