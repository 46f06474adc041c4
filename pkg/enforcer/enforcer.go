package enforcer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

// tenantSetting is the connection-scoped variable the row-visibility
// policies key on. It is set exactly once per transaction, by Activate,
// with is_local so it reverts when the transaction ends.
const tenantSetting = "app.tenant_id"

// Pool is the slice of pgxpool.Pool the enforcer needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Fault describes a disagreement between enforcement layers: the scope
// active for the unit of work and the tenant identifier that actually
// showed up on a filter or on the connection.
type Fault struct {
	ScopeTenant string
	GotTenant   string
	Op          string
	At          time.Time
}

// FaultHandler is invoked synchronously for every enforcement fault, before
// the error returns to the caller. The audit sink and the alert notifier
// hang off this hook.
type FaultHandler func(ctx context.Context, f Fault)

// Observer is notified of every activation outcome. err is nil on success.
// The audit sink hangs off this hook; it runs before Activate returns.
type Observer func(ctx context.Context, tenantID string, err error)

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithFaultHandler registers the fault escalation hook.
func WithFaultHandler(h FaultHandler) Option {
	return func(e *Enforcer) {
		if h != nil {
			e.onFault = h
		}
	}
}

// WithObserver registers an activation observer.
func WithObserver(o Observer) Option {
	return func(e *Enforcer) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the logger for activation failures and faults.
func WithLogger(log *slog.Logger) Option {
	return func(e *Enforcer) {
		if log != nil {
			e.log = log
		}
	}
}

// WithRetry bounds the retries for pool-checkout failures. Faults are never
// retried; only infrastructure failures are.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(e *Enforcer) {
		if attempts >= 0 {
			e.retryAttempts = attempts
		}
		if interval > 0 {
			e.retryInterval = interval
		}
	}
}

// Enforcer turns a bound tenant scope into a scoped transaction handle.
// It is the only way business logic reaches the database: Activate sets the
// connection-scoped tenant variable (the store-enforced layer) and the
// returned Tx demands a matching tenant filter on every call (the
// access-layer filter). Both layers must agree; disagreement is a fault,
// not a fallback.
type Enforcer struct {
	pool          Pool
	onFault       FaultHandler
	observer      Observer
	log           *slog.Logger
	retryAttempts int
	retryInterval time.Duration
}

// New creates an Enforcer over the given pool.
func New(pool Pool, opts ...Option) *Enforcer {
	if pool == nil {
		panic("enforcer: pool is required")
	}

	e := &Enforcer{
		pool:          pool,
		log:           slog.Default(),
		retryAttempts: 2,
		retryInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Activate opens a transaction scoped to the tenant bound to ctx. It
// requires a scope: without one there is no handle and no data access.
// The tenant setting is applied transaction-locally and read back before
// the handle is returned, so a handle that exists is a handle whose
// connection is provably scoped.
//
// Pool checkout and plumbing failures are retried within the configured
// bounds and surface as ErrInfrastructure, distinct from faults.
func (e *Enforcer) Activate(ctx context.Context) (*Tx, error) {
	sc, ok := scope.FromContext(ctx)
	if !ok {
		return nil, scope.ErrNoScope
	}

	tid := sc.TenantID.String()

	tx, err := e.begin(ctx)
	if err != nil {
		e.observe(ctx, tid, err)
		return nil, err
	}

	// set_config returns the applied value, which doubles as the readback.
	var applied string
	if err := tx.QueryRow(ctx, "SELECT set_config($1, $2, true)", tenantSetting, tid).Scan(&applied); err != nil {
		_ = tx.Rollback(ctx)
		err = errors.Join(ErrInfrastructure, err)
		e.observe(ctx, tid, err)
		return nil, err
	}
	if applied != tid {
		_ = tx.Rollback(ctx)
		e.fault(ctx, Fault{ScopeTenant: tid, GotTenant: applied, Op: "activate", At: time.Now()})
		e.observe(ctx, tid, ErrEnforcementFault)
		return nil, ErrEnforcementFault
	}

	e.observe(ctx, tid, nil)
	return &Tx{tx: tx, scope: sc, enf: e}, nil
}

func (e *Enforcer) begin(ctx context.Context) (pgx.Tx, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retryAttempts; attempt++ {
		tx, err := e.pool.Begin(ctx)
		if err == nil {
			return tx, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrInfrastructure, ctx.Err(), lastErr)
		case <-time.After(e.retryInterval):
		}
	}
	return nil, errors.Join(ErrInfrastructure, lastErr)
}

func (e *Enforcer) observe(ctx context.Context, tenantID string, err error) {
	if e.observer != nil {
		e.observer(ctx, tenantID, err)
	}
}

func (e *Enforcer) fault(ctx context.Context, f Fault) {
	e.log.ErrorContext(ctx, "tenant isolation enforcement fault",
		slog.String("scope_tenant", f.ScopeTenant),
		slog.String("got_tenant", f.GotTenant),
		slog.String("op", f.Op),
	)
	if e.onFault != nil {
		e.onFault(ctx, f)
	}
}
