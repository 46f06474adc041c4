package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultCacheTTL bounds how long a resolved key mapping is reused; it may
// be lowered but never raised past MaxCacheTTL.
const DefaultCacheTTL = 10 * time.Minute

// DefaultStateTTL bounds how long a cache hit may skip the lifecycle-state
// re-check. A suspension therefore takes effect within seconds even when
// the key mapping itself is still cached and active invalidation was missed.
const DefaultStateTTL = 15 * time.Second

// Resolution is the outcome of a successful resolve: exactly one tenant,
// the key that matched it, and whether the directory was consulted.
type Resolution struct {
	Tenant     Tenant
	Key        Key
	ResolvedAt time.Time
	CacheHit   bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithStrategies replaces the strategy chain. Order is priority order.
func WithStrategies(strategies ...Strategy) ResolverOption {
	return func(r *Resolver) {
		if len(strategies) > 0 {
			r.strategies = strategies
		}
	}
}

// WithCache replaces the resolution cache.
func WithCache(cache Cache) ResolverOption {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithCacheTTL sets the resolution cache TTL, clamped to MaxCacheTTL.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cacheTTL = min(ttl, MaxCacheTTL)
		}
	}
}

// WithStateTTL sets how long a cache hit may skip the lifecycle re-check.
func WithStateTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.stateTTL = ttl
		}
	}
}

// Resolver maps inbound requests to exactly one tenant, or to a terminal
// error. Strategies run in fixed priority order; the first one that yields a
// key settles which tenant the request may belong to, and the key is then
// resolved through the cache and directory.
type Resolver struct {
	strategies []Strategy
	dir        Directory
	cache      Cache
	cacheTTL   time.Duration
	stateTTL   time.Duration
}

// NewResolver creates a resolver over the given directory. Without options
// it uses an in-memory cache and the default TTLs; strategies must be
// supplied via WithStrategies or DefaultStrategies.
func NewResolver(dir Directory, opts ...ResolverOption) *Resolver {
	if dir == nil {
		panic("tenant: resolver requires a directory")
	}

	r := &Resolver{
		dir:      dir,
		cache:    NewMemoryCache(),
		cacheTTL: DefaultCacheTTL,
		stateTTL: DefaultStateTTL,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Cache exposes the resolver's cache so directory services can invalidate
// entries on lifecycle writes.
func (r *Resolver) Cache() Cache {
	return r.cache
}

// Resolve extracts the highest-priority resolution key from the request and
// resolves it. Malformed input from any strategy aborts resolution; a
// request with no usable signal at all is ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Resolution, error) {
	for _, s := range r.strategies {
		key, err := s.Extract(req)
		if err != nil {
			return nil, err
		}
		if key.IsZero() {
			continue
		}
		return r.ResolveKey(ctx, key)
	}

	return nil, ErrUnresolved
}

// ResolveKey resolves a single typed key: cache probe, then directory
// lookup on miss, with the lifecycle state re-checked independently of the
// cached mapping. Only active tenants resolve.
func (r *Resolver) ResolveKey(ctx context.Context, key Key) (*Resolution, error) {
	now := time.Now()
	cacheKey := key.String()

	if entry, ok := r.cache.Get(ctx, cacheKey); ok {
		if now.Sub(entry.StateCheckedAt) > r.stateTTL {
			state, err := r.dir.State(ctx, entry.Tenant.ID)
			switch {
			case errors.Is(err, ErrNotFound):
				// The record is gone; the cached mapping is dead.
				r.cache.Delete(ctx, cacheKey)
				return nil, fmt.Errorf("%w: tenant %s removed", ErrInactive, entry.Tenant.ID)
			case err != nil:
				// Fail closed: an unverifiable state never resolves.
				return nil, errors.Join(ErrDirectoryUnavailable, err)
			}

			entry.Tenant.State = state
			entry.StateCheckedAt = now
			if remaining := r.cacheTTL - now.Sub(entry.CachedAt); remaining > 0 {
				r.cache.Set(ctx, cacheKey, entry, remaining)
			} else {
				r.cache.Delete(ctx, cacheKey)
			}
		}

		if !entry.Tenant.State.Resolvable() {
			return nil, fmt.Errorf("%w: tenant %s is %s", ErrInactive, entry.Tenant.ID, entry.Tenant.State)
		}

		return &Resolution{Tenant: entry.Tenant, Key: key, ResolvedAt: now, CacheHit: true}, nil
	}

	t, err := r.dir.LookupByKey(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("%w: no tenant for %s key", ErrUnresolved, key.Type)
	case err != nil:
		return nil, errors.Join(ErrDirectoryUnavailable, err)
	}

	if !t.State.Resolvable() {
		// Inactive tenants are not cached; reactivation must take effect
		// on the next request, not after a TTL.
		return nil, fmt.Errorf("%w: tenant %s is %s", ErrInactive, t.ID, t.State)
	}

	r.cache.Set(ctx, cacheKey, Entry{Tenant: *t, CachedAt: now, StateCheckedAt: now}, r.cacheTTL)

	return &Resolution{Tenant: *t, Key: key, ResolvedAt: now, CacheHit: false}, nil
}
