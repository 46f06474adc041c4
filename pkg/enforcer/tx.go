package enforcer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

// TenantFilter is the mandatory tenant argument on every scoped query.
// Business logic obtains it from Tx.TenantID and passes it wherever the SQL
// expects the tenant identifier; the Tx verifies it against the active
// scope and substitutes the raw UUID before the query is sent.
//
// The type exists so the filter cannot be satisfied by accident: a plain
// UUID argument does not count, only a deliberate TenantFilter does.
type TenantFilter struct {
	id uuid.UUID
}

// Filter builds a tenant filter for an explicit identifier. The enforcer
// still verifies it against the active scope; a filter for any other
// tenant is an enforcement fault, not a way around isolation.
func Filter(id uuid.UUID) TenantFilter {
	return TenantFilter{id: id}
}

// UUID returns the wrapped identifier.
func (f TenantFilter) UUID() uuid.UUID { return f.id }

// Tx is the scope-bound data-access handle. Every Exec, Query, and
// QueryRow must carry the scope's TenantFilter among its arguments; calls
// without one are refused, and calls with a mismatched one abort the
// transaction as an enforcement fault. There is no way to reach the
// underlying transaction.
type Tx struct {
	tx     pgx.Tx
	scope  scope.Scope
	enf    *Enforcer
	closed bool
}

// TenantID returns the filter for the transaction's scope.
func (t *Tx) TenantID() TenantFilter {
	return TenantFilter{id: t.scope.TenantID}
}

// Scope returns the scope this handle was activated for.
func (t *Tx) Scope() scope.Scope {
	return t.scope
}

// guard enforces the access-layer filter: at least one TenantFilter
// argument, all of them naming the scope's tenant. It returns the argument
// list with filters unwrapped to plain UUIDs for the driver.
func (t *Tx) guard(ctx context.Context, op string, args []any) ([]any, error) {
	if t.closed {
		return nil, pgx.ErrTxClosed
	}

	found := false
	out := make([]any, len(args))
	for i, arg := range args {
		f, ok := arg.(TenantFilter)
		if !ok {
			out[i] = arg
			continue
		}
		if f.id != t.scope.TenantID {
			t.abort(ctx, op, f.id.String())
			return nil, ErrEnforcementFault
		}
		found = true
		out[i] = f.id
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnscopedQuery, op)
	}
	return out, nil
}

// Exec runs a scoped statement.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	guarded, err := t.guard(ctx, "exec", args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return t.tx.Exec(ctx, sql, guarded...)
}

// Query runs a scoped query.
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	guarded, err := t.guard(ctx, "query", args)
	if err != nil {
		return nil, err
	}
	return t.tx.Query(ctx, sql, guarded...)
}

// QueryRow runs a scoped single-row query. Guard failures surface on Scan,
// matching pgx's deferred-error shape.
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	guarded, err := t.guard(ctx, "query_row", args)
	if err != nil {
		return errRow{err: err}
	}
	return t.tx.QueryRow(ctx, sql, guarded...)
}

// Commit re-verifies that the connection's tenant setting still names the
// scope's tenant, then commits. A drifted setting means something other
// than the enforcer touched it mid-transaction; that is a fault and the
// transaction rolls back instead.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}

	var current *string
	if err := t.tx.QueryRow(ctx, "SELECT current_setting($1, true)", tenantSetting).Scan(&current); err != nil {
		_ = t.Rollback(ctx)
		return errors.Join(ErrInfrastructure, err)
	}
	if current == nil || *current != t.scope.TenantID.String() {
		got := ""
		if current != nil {
			got = *current
		}
		t.abort(ctx, "commit", got)
		return ErrEnforcementFault
	}

	t.closed = true
	return t.tx.Commit(ctx)
}

// Rollback aborts the transaction. It is idempotent and safe on
// cancellation paths; rolling back a finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	t.closed = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// abort rolls the transaction back and escalates the fault.
func (t *Tx) abort(ctx context.Context, op, got string) {
	_ = t.Rollback(ctx)
	t.enf.fault(ctx, Fault{
		ScopeTenant: t.scope.TenantID.String(),
		GotTenant:   got,
		Op:          op,
		At:          time.Now(),
	})
}

// errRow defers a guard error to Scan.
type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }
