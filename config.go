package tenantkit

import "time"

// Config holds the static inputs of the isolation layer. Everything here
// is deployment configuration; per-tenant data lives in the directory.
type Config struct {
	// BaseDomain anchors subdomain resolution: a request to
	// <sub>.<BaseDomain> resolves through the subdomain strategy, any
	// other host through the custom-domain strategy.
	BaseDomain string `env:"TENANT_BASE_DOMAIN,required"`

	// CacheTTL bounds how long a resolution is served without consulting
	// the directory at all.
	CacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`

	// StateTTL bounds how long a cached resolution is trusted before the
	// tenant's lifecycle state is re-checked. Suspension still propagates
	// immediately through synchronous invalidation; this is the backstop.
	StateTTL time.Duration `env:"TENANT_STATE_TTL" envDefault:"30s"`

	// SkipPaths lists path prefixes that bypass tenant resolution
	// (health checks, metrics scrapes).
	SkipPaths []string `env:"TENANT_SKIP_PATHS" envSeparator:"," envDefault:"/health"`
}
