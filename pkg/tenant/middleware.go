package tenant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

// ErrorHandler writes the response for a failed resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Observer is notified of every resolution outcome. res is nil when
// resolution failed. The audit sink hangs off this hook; observation must
// never block the request path for long.
type Observer func(ctx context.Context, res *Resolution, err error)

// config holds middleware configuration.
type config struct {
	skipPaths    []string
	errorHandler ErrorHandler
	observer     Observer
}

// Option configures the middleware.
type Option func(*config)

// WithSkipPaths sets path prefixes that bypass resolution entirely
// (health checks, metrics scrapes).
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithErrorHandler replaces the default denial writer.
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithObserver registers a resolution observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// methodFor maps the matched key type to the scope's resolution method.
func methodFor(k KeyType) scope.Method {
	switch k {
	case KeyTypeAPIKeyHash:
		return scope.MethodAPIKey
	case KeyTypeID:
		return scope.MethodHeader
	case KeyTypeSubdomain:
		return scope.MethodSubdomain
	case KeyTypeCustomDomain:
		return scope.MethodCustomDomain
	default:
		return scope.Method(k)
	}
}

// Middleware resolves the tenant for every request and binds it to the
// request context as an immutable scope. Requests that do not resolve are
// rejected here, before any business logic runs. Resolution happens-before
// binding happens-before anything downstream can touch data; the chain
// shape is the ordering guarantee.
func Middleware(resolver *Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		errorHandler: DenyHandler,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			res, err := resolver.Resolve(r.Context(), r)
			if cfg.observer != nil {
				cfg.observer(r.Context(), res, err)
			}
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}

			sc := scope.New(res.Tenant.ID, methodFor(res.Key.Type))
			ctx, err := scope.Bind(r.Context(), sc)
			if err != nil {
				// A pre-existing conflicting scope means the chain is
				// wired wrong or something upstream is forging identity.
				// Fatal either way.
				if cfg.observer != nil {
					cfg.observer(r.Context(), res, err)
				}
				WriteServerError(w)
				return
			}
			ctx = WithContext(ctx, res.Tenant)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope guards routes that must only be reachable with a bound
// tenant scope. It backstops mis-mounted routers; the resolution middleware
// is still the component that establishes the scope.
func RequireScope(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = DenyHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := scope.FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenant)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DenyHandler is the default ErrorHandler. Malformed input, unknown
// signals, and inactive tenants all produce the identical generic denial so
// an outside caller cannot probe which tenants exist or are suspended. Only
// infrastructure failures are distinguishable, as a retryable 503.
func DenyHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrDirectoryUnavailable) {
		WriteUnavailable(w)
		return
	}
	WriteDenied(w)
}

// WriteDenied writes the generic denial response.
func WriteDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"not_found"}`))
}

// WriteUnavailable writes the retryable infrastructure-failure response.
func WriteUnavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"error":"temporarily_unavailable"}`))
}

// WriteServerError writes the generic server-error response used for
// internal faults that must not leak detail.
func WriteServerError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal_error"}`))
}
