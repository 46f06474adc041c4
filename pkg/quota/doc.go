// Package quota enforces per-tenant plan ceilings: hourly request rates
// and countable dimensions such as storage bytes and active users.
//
// Plans come from a Source (static map or YAML file) and are loaded once
// at startup. Request rates are metered by a RateLimiter: in-process
// token buckets for single nodes, or a redis fixed-window counter when
// the ceiling must hold across instances. Countable dimensions are read
// through registered CounterFunc callbacks so the package never owns the
// underlying data.
//
// Crossing a ceiling is a hard rejection. RequireWithin drops the request
// with 429 and a Retry-After rather than queueing it, which keeps one
// over-quota tenant from degrading service for everyone else.
package quota
