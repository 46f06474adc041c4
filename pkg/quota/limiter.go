package quota

import (
	"context"
	"time"
)

// RateWindow is the accounting window for the requests dimension: plan
// request limits are expressed per hour.
const RateWindow = time.Hour

// Result is the outcome of a request-rate check.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before retrying.
// Zero when the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r == nil || r.Allowed {
		return 0
	}
	if d := time.Until(r.ResetAt); d > 0 {
		return d
	}
	return time.Second
}

// RateLimiter meters per-tenant request rates. The limit and burst come
// from the tenant's plan on every call, so one limiter instance serves
// tenants on different tiers. Implementations must keep per-key state
// independent: one tenant draining its allowance never consumes another's.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, burst int) (*Result, error)
}
