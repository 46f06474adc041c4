package tenantkit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/alert"
	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/clientip"
	"github.com/dmitrymomot/tenantkit/pkg/enforcer"
	"github.com/dmitrymomot/tenantkit/pkg/quota"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/scope"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Deps carries the collaborators the stack composes. Directory and Hasher
// are required; everything else degrades gracefully when absent.
type Deps struct {
	// Directory is the authoritative tenant registry.
	Directory tenant.Directory

	// Hasher turns raw API credentials into the keyed hashes the
	// directory stores. Required because the API-key strategy is the
	// highest-priority resolution path.
	Hasher tenant.Hasher

	// Cache overrides the resolver's in-process resolution cache.
	Cache tenant.Cache

	// Pool enables the data-access enforcer. Without it, Enforcer()
	// returns nil and the stack only handles resolution and quota.
	Pool enforcer.Pool

	// Quota enables the per-tenant request gate.
	Quota *quota.Service

	// Audit records resolution attempts, quota denials and enforcement
	// faults. Defaults to a no-op sink.
	Audit audit.Logger

	// Alert is paged on enforcement faults.
	Alert alert.Notifier

	// HeaderTrust vouches for callers whose X-Tenant-ID header may be
	// honored. Nil means the header strategy never fires.
	HeaderTrust tenant.TrustFunc

	Logger *slog.Logger
}

// Stack is the composition front door: one value owning the resolver, the
// enforcer, the quota gate and the audit wiring, exposed as a single
// net/http middleware chain.
type Stack struct {
	cfg      Config
	resolver *tenant.Resolver
	enforcer *enforcer.Enforcer
	quota    *quota.Service
	audit    audit.Logger
	alert    alert.Notifier
	log      *slog.Logger
}

// New wires a stack from configuration and dependencies.
func New(cfg Config, deps Deps) (*Stack, error) {
	if deps.Directory == nil {
		return nil, errors.New("tenantkit: directory is required")
	}
	if deps.Hasher == nil {
		return nil, errors.New("tenantkit: key hasher is required")
	}
	if cfg.BaseDomain == "" {
		return nil, errors.New("tenantkit: base domain is required")
	}

	s := &Stack{
		cfg:   cfg,
		quota: deps.Quota,
		audit: deps.Audit,
		alert: deps.Alert,
		log:   deps.Logger,
	}
	if s.audit == nil {
		s.audit = audit.NoopLogger{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	resolverOpts := []tenant.ResolverOption{
		tenant.WithStrategies(tenant.DefaultStrategies(cfg.BaseDomain, deps.Hasher, deps.HeaderTrust)...),
	}
	if deps.Cache != nil {
		resolverOpts = append(resolverOpts, tenant.WithCache(deps.Cache))
	}
	if cfg.CacheTTL > 0 {
		resolverOpts = append(resolverOpts, tenant.WithCacheTTL(cfg.CacheTTL))
	}
	if cfg.StateTTL > 0 {
		resolverOpts = append(resolverOpts, tenant.WithStateTTL(cfg.StateTTL))
	}
	s.resolver = tenant.NewResolver(deps.Directory, resolverOpts...)

	if deps.Pool != nil {
		s.enforcer = enforcer.New(deps.Pool,
			enforcer.WithLogger(s.log),
			enforcer.WithFaultHandler(s.onFault),
			enforcer.WithObserver(s.observeActivation),
		)
	}

	return s, nil
}

// Handler returns the ordered middleware chain around next: request ID,
// client IP, tenant resolution with scope binding, then the quota gate.
// Resolution always precedes the quota check so rate counters are charged
// to a verified tenant identity, never to a claimed one.
func (s *Stack) Handler(next http.Handler) http.Handler {
	h := next
	if s.quota != nil {
		h = quota.RequireWithin(s.quota,
			quota.WithObserver(s.observeQuota),
			quota.WithMiddlewareLogger(s.log),
		)(h)
	}
	h = tenant.Middleware(s.resolver,
		tenant.WithSkipPaths(s.cfg.SkipPaths...),
		tenant.WithObserver(s.observeResolution),
	)(h)
	h = clientip.Middleware(h)
	h = requestid.Middleware(h)
	return h
}

// Resolver exposes the resolution service, mainly so directory services
// can be pointed at its cache for synchronous invalidation.
func (s *Stack) Resolver() *tenant.Resolver {
	return s.resolver
}

// Enforcer returns the data-access enforcer, or nil when the stack was
// built without a pool.
func (s *Stack) Enforcer() *enforcer.Enforcer {
	return s.enforcer
}

func (s *Stack) observeResolution(ctx context.Context, res *tenant.Resolution, err error) {
	if err != nil {
		action := audit.ActionResolve
		opts := []audit.EventOption{}
		if errors.Is(err, scope.ErrScopeConflict) {
			action = audit.ActionScopeBind
			opts = append(opts, audit.WithSeverity(audit.SeverityCritical))
		}
		if res != nil {
			opts = append(opts, audit.WithTenant(res.Tenant.ID))
		}
		_ = s.audit.LogError(ctx, action, err, opts...)
		return
	}

	_ = s.audit.Log(ctx, audit.ActionResolve,
		audit.WithTenant(res.Tenant.ID),
		audit.WithMethod(string(res.Key.Type)),
		audit.WithMetadata("cache_hit", res.CacheHit),
	)
}

// observeActivation records every activation outcome. Faults carry their
// full detail through onFault, so they are skipped here to avoid double
// records for one decision.
func (s *Stack) observeActivation(ctx context.Context, tenantID string, err error) {
	if errors.Is(err, enforcer.ErrEnforcementFault) {
		return
	}

	var tenantOpt []audit.EventOption
	if id, perr := uuid.Parse(tenantID); perr == nil {
		tenantOpt = append(tenantOpt, audit.WithTenant(id))
	}

	if err != nil {
		opts := append([]audit.EventOption{
			audit.WithReason("scoped transaction unavailable"),
		}, tenantOpt...)
		_ = s.audit.LogError(ctx, audit.ActionActivate, err, opts...)
		return
	}
	_ = s.audit.Log(ctx, audit.ActionActivate, tenantOpt...)
}

// observeQuota records every quota decision, admitted or denied. Limiter
// outages are logged by the middleware and the gate fails open, so there is
// no decision to record on that path.
func (s *Stack) observeQuota(ctx context.Context, tenantID uuid.UUID, res *quota.Result, err error) {
	if err != nil {
		return
	}
	if res.Allowed {
		_ = s.audit.Log(ctx, audit.ActionQuota,
			audit.WithTenant(tenantID),
			audit.WithMetadata("remaining", res.Remaining),
		)
		return
	}
	_ = s.audit.Log(ctx, audit.ActionQuota,
		audit.WithTenant(tenantID),
		audit.WithResult(audit.ResultDenied),
		audit.WithSeverity(audit.SeverityWarning),
		audit.WithReason("request rate ceiling reached"),
		audit.WithMetadata("limit", res.Limit),
	)
}

// onFault records an enforcement fault and pages the operator. It runs
// synchronously on the failing request's path, so everything here must be
// cheap and must not fail the caller further.
func (s *Stack) onFault(ctx context.Context, f enforcer.Fault) {
	_ = s.audit.LogError(ctx, audit.ActionFault, enforcer.ErrEnforcementFault,
		audit.WithResult(audit.ResultFault),
		audit.WithSeverity(audit.SeverityCritical),
		audit.WithMetadata("op", f.Op),
		audit.WithMetadata("scope_tenant", f.ScopeTenant),
		audit.WithMetadata("observed_tenant", f.GotTenant),
	)
	if s.alert != nil {
		s.alert.Critical(ctx, "enforcement layers disagree",
			"op", f.Op,
			"scope_tenant", f.ScopeTenant,
			"observed_tenant", f.GotTenant,
		)
	}
}
