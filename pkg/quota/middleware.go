package quota

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

// Observer is notified of every rate decision, success or denial. The
// audit sink hangs off this hook.
type Observer func(ctx context.Context, tenantID uuid.UUID, res *Result, err error)

type middlewareConfig struct {
	observer Observer
	onDenied func(w http.ResponseWriter, r *http.Request, res *Result)
	log      *slog.Logger
}

// MiddlewareOption configures RequireWithin.
type MiddlewareOption func(*middlewareConfig)

// WithObserver registers the decision hook.
func WithObserver(fn Observer) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.observer = fn
		}
	}
}

// WithDeniedHandler overrides the 429 response.
func WithDeniedHandler(fn func(w http.ResponseWriter, r *http.Request, res *Result)) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.onDenied = fn
		}
	}
}

// WithMiddlewareLogger sets the logger for limiter failures.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// RequireWithin gates requests on the tenant's request-rate quota. It runs
// after the resolver has bound a scope; requests without one pass through
// untouched, since unresolved callers were already denied upstream.
//
// An exceeded quota is a hard rejection: the request is dropped with 429
// and a Retry-After, never queued, so one tenant burning through its
// allowance cannot degrade anyone else. Unlike isolation decisions, quota
// rejections are allowed to say what they are.
//
// Limiter backend failures fail open with a log line: the rate ceiling is
// a fairness device, not a security boundary, and an outage of the meter
// must not take tenant traffic down with it.
func RequireWithin(svc *Service, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{
		onDenied: writeExceeded,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc, ok := scope.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			res, err := svc.Allow(r.Context(), sc.TenantID)
			if cfg.observer != nil {
				cfg.observer(r.Context(), sc.TenantID, res, err)
			}
			if err != nil {
				cfg.log.ErrorContext(r.Context(), "quota check failed, admitting request",
					slog.String("tenant_id", sc.TenantID.String()),
					slog.Any("error", err),
				)
				next.ServeHTTP(w, r)
				return
			}

			if res.Limit != Unlimited {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			}

			if !res.Allowed {
				cfg.onDenied(w, r, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeExceeded(w http.ResponseWriter, _ *http.Request, res *Result) {
	retryAfter := int(res.RetryAfter().Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"quota_exceeded"}`))
}
