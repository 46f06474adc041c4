package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// DefaultRotationGrace is how long a rotated-out API key keeps resolving so
// in-flight callers and cached entries drain instead of failing mid-cycle.
const DefaultRotationGrace = time.Minute

// ProvisionInput is the administrative input for creating a tenant.
type ProvisionInput struct {
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	CustomDomain string `json:"custom_domain,omitempty"`
	PlanID       string `json:"plan_id,omitempty"`
}

// Validate applies the same signal validation the resolver uses, so a key
// that cannot be resolved cannot be provisioned either.
func (in ProvisionInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if err := tenant.ValidateSubdomain(in.Subdomain); err != nil {
		return errors.Join(ErrInvalidRecord, err)
	}
	if in.CustomDomain != "" {
		if err := tenant.ValidateHostname(in.CustomDomain); err != nil {
			return errors.Join(ErrInvalidRecord, err)
		}
	}
	return nil
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRotationGrace overrides the rotation grace window.
func WithRotationGrace(grace time.Duration) ServiceOption {
	return func(s *Service) {
		if grace >= 0 {
			s.grace = grace
		}
	}
}

// WithAuditLogger records every administrative operation.
func WithAuditLogger(logger audit.Logger) ServiceOption {
	return func(s *Service) {
		s.audit = logger
	}
}

// WithDefaultPlan sets the plan assigned when provisioning omits one.
func WithDefaultPlan(planID string) ServiceOption {
	return func(s *Service) {
		if planID != "" {
			s.defaultPlan = planID
		}
	}
}

// Service is the only supported mutation path into the directory. It owns
// credential hashing, lifecycle policy, and the contract that every
// lifecycle write synchronously invalidates the tenant's resolution-cache
// entries before the write is reported complete.
//
// Service also implements tenant.Directory, so the resolver reads through
// the same component administrators write through.
type Service struct {
	store       Store
	cache       tenant.Cache
	hasher      *KeyHasher
	audit       audit.Logger
	grace       time.Duration
	defaultPlan string
}

// NewService wires the directory service. cache is the resolution cache the
// resolver reads from; pass the same instance, or suspensions will only
// take effect after the state TTL.
func NewService(store Store, cache tenant.Cache, hasher *KeyHasher, opts ...ServiceOption) *Service {
	if store == nil {
		panic("directory: service requires a store")
	}
	if cache == nil {
		cache = tenant.NewNoopCache()
	}
	if hasher == nil {
		panic("directory: service requires a key hasher")
	}

	s := &Service{
		store:       store,
		cache:       cache,
		hasher:      hasher,
		grace:       DefaultRotationGrace,
		defaultPlan: "free",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hasher exposes the credential hasher for the API-key resolution strategy.
func (s *Service) Hasher() tenant.Hasher {
	return s.hasher
}

// LookupByKey implements tenant.Directory.
func (s *Service) LookupByKey(ctx context.Context, key tenant.Key) (*tenant.Tenant, error) {
	rec, err := s.store.GetByKey(ctx, key, time.Now().Add(-s.grace))
	if err != nil {
		return nil, err
	}
	t := rec.Tenant()
	return &t, nil
}

// State implements tenant.Directory.
func (s *Service) State(ctx context.Context, tenantID uuid.UUID) (tenant.State, error) {
	return s.store.State(ctx, tenantID)
}

// Provision creates an active tenant and returns its record together with
// the raw API credential. The credential is shown exactly once; only its
// hash is stored.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*Record, string, error) {
	if err := in.Validate(); err != nil {
		return nil, "", err
	}

	rawKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}

	planID := in.PlanID
	if planID == "" {
		planID = s.defaultPlan
	}

	now := time.Now()
	rec := &Record{
		ID:           uuid.New(),
		Name:         in.Name,
		Subdomain:    in.Subdomain,
		CustomDomain: in.CustomDomain,
		APIKeyHash:   s.hasher.Hash(rawKey),
		State:        tenant.StateActive,
		PlanID:       planID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, rec); err != nil {
		s.logError(ctx, "directory.provision", err, rec.ID)
		return nil, "", err
	}

	s.log(ctx, "directory.provision", rec.ID)
	return rec, rawKey, nil
}

// Suspend stops the tenant from resolving. The cache invalidation runs
// before success is reported, so the suspension is effective immediately,
// not after the cache TTL.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "directory.suspend", id, tenant.StateSuspended)
}

// Resume reactivates a suspended tenant.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) error {
	state, err := s.store.State(ctx, id)
	if err != nil {
		return err
	}
	if state == tenant.StateDeleted {
		return fmt.Errorf("%w: cannot resume a deleted tenant", ErrInvalidTransition)
	}
	return s.transition(ctx, "directory.resume", id, tenant.StateActive)
}

// Delete soft-deletes the tenant. The record survives for the audit trail;
// it just never resolves again.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "directory.delete", id, tenant.StateDeleted)
}

// RotateAPIKey replaces the tenant's API credential and returns the new raw
// key exactly once. The old key keeps resolving for the grace window; the
// tenant's cache entries are invalidated so new requests pick up the new
// binding immediately.
func (s *Service) RotateAPIKey(ctx context.Context, id uuid.UUID) (string, error) {
	rawKey, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}

	if err := s.store.RotateAPIKey(ctx, id, s.hasher.Hash(rawKey)); err != nil {
		s.logError(ctx, "directory.rotate_key", err, id)
		return "", err
	}

	if err := s.cache.InvalidateTenant(ctx, id); err != nil {
		s.logError(ctx, "directory.rotate_key", err, id)
		return "", errors.Join(ErrCacheInvalidation, err)
	}

	s.log(ctx, "directory.rotate_key", id)
	return rawKey, nil
}

// Get returns the full record for administrative views.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) transition(ctx context.Context, action string, id uuid.UUID, state tenant.State) error {
	if err := s.store.UpdateState(ctx, id, state); err != nil {
		s.logError(ctx, action, err, id)
		return err
	}

	// The write is not complete until stale resolutions cannot happen.
	if err := s.cache.InvalidateTenant(ctx, id); err != nil {
		s.logError(ctx, action, err, id)
		return errors.Join(ErrCacheInvalidation, err)
	}

	s.log(ctx, action, id)
	return nil
}

func (s *Service) log(ctx context.Context, action string, id uuid.UUID) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Log(ctx, action,
		audit.WithTenant(id),
		audit.WithResource("tenant", id.String()),
	)
}

func (s *Service) logError(ctx context.Context, action string, err error, id uuid.UUID) {
	if s.audit == nil {
		return
	}
	_ = s.audit.LogError(ctx, action, err,
		audit.WithTenant(id),
		audit.WithResource("tenant", id.String()),
	)
}
