package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// CounterFunc returns the current usage for a tenant on one dimension.
// Counters run with the caller's context, so they see the same tenant
// scope as the request whose quota they gate. They should be fast: cache
// or aggregate at the repository level.
type CounterFunc func(ctx context.Context, tenantID uuid.UUID) (int64, error)

// PlanLookup resolves the plan ID for a tenant, typically from the tenant
// directory or the resolved tenant already on the context.
type PlanLookup func(ctx context.Context, tenantID uuid.UUID) (string, error)

// Usage pairs current consumption with the plan ceiling for one dimension.
type Usage struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRateLimiter sets the request-rate limiter backend.
func WithRateLimiter(l RateLimiter) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// Service answers quota questions for tenants: whether another request is
// within the plan's rate, and whether a countable dimension has room for
// one more. Exceeding a ceiling is a hard stop, not a warning.
type Service struct {
	// plans is immutable after New; concurrent reads need no locking.
	plans    map[string]Plan
	counters map[Dimension]CounterFunc
	limiter  RateLimiter
	planFor  PlanLookup
	log      *slog.Logger
}

// NewService loads the plan catalog and builds the quota service.
func NewService(ctx context.Context, src Source, planFor PlanLookup, opts ...ServiceOption) (*Service, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrSourceFailed)
	}
	if planFor == nil {
		panic("quota: plan lookup is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrSourceFailed, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	s := &Service{
		plans:    plans,
		counters: make(map[Dimension]CounterFunc),
		planFor:  planFor,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewMemoryLimiter()
	}
	return s, nil
}

// RegisterCounter sets the usage counter for a dimension. Register all
// counters at startup; the registry is not synchronized afterwards.
func (s *Service) RegisterCounter(dim Dimension, fn CounterFunc) {
	if fn == nil {
		panic(fmt.Sprintf("quota: counter for dimension %q cannot be nil", dim))
	}
	s.counters[dim] = fn
}

// Plan returns the plan by ID.
func (s *Service) Plan(id string) (Plan, bool) {
	p, ok := s.plans[id]
	if !ok {
		return Plan{}, false
	}
	return p.clone(), true
}

// Check reports whether the tenant has room for one more unit on a
// countable dimension. ErrQuotaExceeded means the ceiling is reached.
func (s *Service) Check(ctx context.Context, tenantID uuid.UUID, dim Dimension) error {
	plan, err := s.planOf(ctx, tenantID)
	if err != nil {
		return err
	}

	limit, ok := plan.Limit(dim)
	if !ok {
		return fmt.Errorf("%w: %q on plan %q", ErrUnknownDimension, dim, plan.ID)
	}
	if limit == Unlimited {
		return nil
	}

	counter, ok := s.counters[dim]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoCounter, dim)
	}
	used, err := counter(ctx, tenantID)
	if err != nil {
		return err
	}
	if used >= limit {
		return fmt.Errorf("%w: %s at %d of %d", ErrQuotaExceeded, dim, used, limit)
	}
	return nil
}

// Allow counts one request against the tenant's hourly rate. A plan
// without a requests ceiling is unmetered.
func (s *Service) Allow(ctx context.Context, tenantID uuid.UUID) (*Result, error) {
	plan, err := s.planOf(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	limit, ok := plan.Limit(DimensionRequests)
	if !ok {
		limit = Unlimited
	}
	return s.limiter.Allow(ctx, tenantID.String(), limit, plan.RequestBurst)
}

// AllUsage returns usage against every countable ceiling of the tenant's
// plan, for dashboards and the administrative surface. Dimensions without
// a registered counter report usage -1.
func (s *Service) AllUsage(ctx context.Context, tenantID uuid.UUID) (map[Dimension]Usage, error) {
	plan, err := s.planOf(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make(map[Dimension]Usage, len(plan.Limits))
	for dim, limit := range plan.Limits {
		if dim == DimensionRequests {
			continue
		}
		u := Usage{Used: -1, Limit: limit}
		if counter, ok := s.counters[dim]; ok {
			used, err := counter(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			u.Used = used
		}
		out[dim] = u
	}
	return out, nil
}

func (s *Service) planOf(ctx context.Context, tenantID uuid.UUID) (Plan, error) {
	planID, err := s.planFor(ctx, tenantID)
	if err != nil {
		return Plan{}, err
	}
	plan, ok := s.plans[planID]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}
	return plan, nil
}
