// Package tenant resolves which tenant an inbound request belongs to and
// binds that identity to the request context before any business logic runs.
//
// Resolution consults typed signals in a fixed priority order, first match
// wins: an API credential, an authenticated tenant header, the hostname as
// <subdomain>.<base-domain>, then the hostname as a registered custom
// domain. A strategy either yields exactly one key or defers to the next;
// anything ambiguous (repeated headers, delimiters, wildcards, traversal
// tokens) is malformed and aborts the whole resolution rather than being
// parsed on a best-effort basis.
//
// Resolved keys are cached with a bounded TTL, but lifecycle state sits
// outside the cached trust boundary: cache hits re-check the tenant's state
// against the directory on a much shorter interval, and lifecycle writes
// invalidate a tenant's cache entries synchronously. A suspended tenant
// stops resolving within seconds, not after the cache TTL.
//
//	dir := directory.NewMemoryStore()
//	resolver := tenant.NewResolver(dir,
//		tenant.WithStrategies(tenant.DefaultStrategies("example.com", hasher, nil)...),
//		tenant.WithCacheTTL(10*time.Minute),
//	)
//
//	router.Use(tenant.Middleware(resolver,
//		tenant.WithSkipPaths("/health"),
//	))
//
// Externally, every resolution failure except an infrastructure outage
// produces the identical generic denial. The real reason is available to
// the operator through the middleware's observer hook, which the audit sink
// attaches to.
package tenant
