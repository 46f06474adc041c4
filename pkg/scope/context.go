package scope

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// contextKey is a private type to prevent collisions with other context keys.
type contextKey struct{}

// Bind attaches a scope to the context. Binding is one-shot: if the context
// already carries a scope for a different tenant, Bind returns
// ErrScopeConflict and the original context. Rebinding the same tenant is a
// no-op, so middleware ordering mistakes do not duplicate scopes.
func Bind(ctx context.Context, s Scope) (context.Context, error) {
	if !s.Valid() {
		return ctx, ErrInvalidScope
	}

	if existing, ok := FromContext(ctx); ok {
		if existing.TenantID == s.TenantID {
			return ctx, nil
		}
		return ctx, ErrScopeConflict
	}

	return context.WithValue(ctx, contextKey{}, s), nil
}

// FromContext retrieves the scope bound to the context.
// Returns a zero scope and false if none is bound.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(contextKey{}).(Scope)
	return s, ok
}

// MustFromContext retrieves the scope from the context.
// Panics if no scope is bound. Use this only in code paths that
// cannot be reached before scope binding.
func MustFromContext(ctx context.Context) Scope {
	s, ok := FromContext(ctx)
	if !ok {
		panic("scope: no tenant scope in context")
	}
	return s
}

// TenantID returns the tenant bound to the context.
// Returns uuid.Nil and false if no scope is bound.
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	s, ok := FromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return s.TenantID, true
}

// LoggerExtractor returns a ContextExtractor for the logger that attaches
// the scoped tenant ID to every log record.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := TenantID(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
