package enforcer_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/enforcer"
	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

// fakeTx implements pgx.Tx far enough to observe what the enforcer does
// with the connection-scoped tenant setting.
type fakeTx struct {
	mu         sync.Mutex
	setting    string
	misreport  string // set_config readback lies when non-empty
	driftTo    string // commit-time current_setting reports this instead
	driftNull  bool   // commit-time current_setting reports NULL
	committed  bool
	rolledBack bool
	execSQL    []string
	execArgs   [][]any
}

type valueRow struct {
	v    string
	null bool
}

func (r valueRow) Scan(dest ...any) error {
	switch d := dest[0].(type) {
	case *string:
		*d = r.v
	case **string:
		if r.null {
			*d = nil
		} else {
			v := r.v
			*d = &v
		}
	}
	return nil
}

func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolledBack {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.execSQL = append(t.execSQL, sql)
	t.execArgs = append(t.execArgs, args)
	return pgconn.NewCommandTag("EXEC 1"), nil
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }

func (t *fakeTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case strings.Contains(sql, "set_config"):
		t.setting = args[1].(string)
		if t.misreport != "" {
			return valueRow{v: t.misreport}
		}
		return valueRow{v: t.setting}
	case strings.Contains(sql, "current_setting"):
		if t.driftNull {
			return valueRow{null: true}
		}
		if t.driftTo != "" {
			return valueRow{v: t.driftTo}
		}
		return valueRow{v: t.setting}
	default:
		return valueRow{}
	}
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakePool struct {
	tx         *fakeTx
	beginErr   error
	beginCalls int
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	p.beginCalls++
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}

func scopedCtx(t *testing.T, id uuid.UUID) context.Context {
	t.Helper()
	ctx, err := scope.Bind(context.Background(), scope.New(id, scope.MethodAPIKey))
	require.NoError(t, err)
	return ctx
}

func TestActivate(t *testing.T) {
	t.Parallel()

	t.Run("requires a bound scope", func(t *testing.T) {
		t.Parallel()

		enf := enforcer.New(&fakePool{tx: &fakeTx{}})
		_, err := enf.Activate(context.Background())
		assert.ErrorIs(t, err, scope.ErrNoScope)
	})

	t.Run("applies and verifies the tenant setting", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		ftx := &fakeTx{}
		enf := enforcer.New(&fakePool{tx: ftx})

		tx, err := enf.Activate(scopedCtx(t, id))
		require.NoError(t, err)
		assert.Equal(t, id.String(), ftx.setting)
		assert.Equal(t, id, tx.TenantID().UUID())
	})

	t.Run("readback mismatch is a fault", func(t *testing.T) {
		t.Parallel()

		var fault *enforcer.Fault
		ftx := &fakeTx{misreport: uuid.NewString()}
		enf := enforcer.New(&fakePool{tx: ftx},
			enforcer.WithFaultHandler(func(_ context.Context, f enforcer.Fault) { fault = &f }),
		)

		_, err := enf.Activate(scopedCtx(t, uuid.New()))
		assert.ErrorIs(t, err, enforcer.ErrEnforcementFault)
		assert.True(t, ftx.rolledBack)
		require.NotNil(t, fault)
		assert.Equal(t, "activate", fault.Op)
	})

	t.Run("observer sees every outcome", func(t *testing.T) {
		t.Parallel()

		type seen struct {
			tenantID string
			err      error
		}
		var got []seen
		record := func(_ context.Context, tenantID string, err error) {
			got = append(got, seen{tenantID: tenantID, err: err})
		}

		id := uuid.New()
		enf := enforcer.New(&fakePool{tx: &fakeTx{}}, enforcer.WithObserver(record))
		_, err := enf.Activate(scopedCtx(t, id))
		require.NoError(t, err)

		badPool := &fakePool{beginErr: errors.New("pool exhausted")}
		enf = enforcer.New(badPool,
			enforcer.WithObserver(record),
			enforcer.WithRetry(0, time.Millisecond),
		)
		_, err = enf.Activate(scopedCtx(t, id))
		require.Error(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, id.String(), got[0].tenantID)
		assert.NoError(t, got[0].err)
		assert.ErrorIs(t, got[1].err, enforcer.ErrInfrastructure)
	})

	t.Run("pool failure is retryable infrastructure", func(t *testing.T) {
		t.Parallel()

		pool := &fakePool{beginErr: errors.New("pool exhausted")}
		enf := enforcer.New(pool, enforcer.WithRetry(2, time.Millisecond))

		_, err := enf.Activate(scopedCtx(t, uuid.New()))
		assert.ErrorIs(t, err, enforcer.ErrInfrastructure)
		assert.NotErrorIs(t, err, enforcer.ErrEnforcementFault)
		assert.Equal(t, 3, pool.beginCalls, "bounded retries, then give up")
	})
}

func TestTxFiltering(t *testing.T) {
	t.Parallel()

	t.Run("unfiltered query is refused before the database", func(t *testing.T) {
		t.Parallel()

		ftx := &fakeTx{}
		enf := enforcer.New(&fakePool{tx: ftx})
		tx, err := enf.Activate(scopedCtx(t, uuid.New()))
		require.NoError(t, err)

		_, err = tx.Exec(context.Background(), `DELETE FROM assets`)
		assert.ErrorIs(t, err, enforcer.ErrUnscopedQuery)
		assert.Empty(t, ftx.execSQL, "the statement must never reach the connection")

		_, err = tx.Query(context.Background(), `SELECT id FROM assets WHERE name = $1`, "x")
		assert.ErrorIs(t, err, enforcer.ErrUnscopedQuery)

		err = tx.QueryRow(context.Background(), `SELECT id FROM assets`).Scan(new(string))
		assert.ErrorIs(t, err, enforcer.ErrUnscopedQuery)
	})

	t.Run("matching filter is unwrapped for the driver", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		ftx := &fakeTx{}
		enf := enforcer.New(&fakePool{tx: ftx})
		tx, err := enf.Activate(scopedCtx(t, id))
		require.NoError(t, err)

		_, err = tx.Exec(context.Background(),
			`INSERT INTO assets (tenant_id, name) VALUES ($1, $2)`, tx.TenantID(), "display-1")
		require.NoError(t, err)

		require.Len(t, ftx.execArgs, 1)
		assert.Equal(t, id, ftx.execArgs[0][0], "driver sees the raw uuid")
		assert.Equal(t, "display-1", ftx.execArgs[0][1])
	})

	t.Run("forged filter aborts the transaction", func(t *testing.T) {
		t.Parallel()

		var fault *enforcer.Fault
		other := uuid.New()
		ftx := &fakeTx{}
		enf := enforcer.New(&fakePool{tx: ftx},
			enforcer.WithFaultHandler(func(_ context.Context, f enforcer.Fault) { fault = &f }),
		)
		tx, err := enf.Activate(scopedCtx(t, uuid.New()))
		require.NoError(t, err)

		_, err = tx.Exec(context.Background(),
			`SELECT * FROM assets WHERE tenant_id = $1`, enforcer.Filter(other))
		assert.ErrorIs(t, err, enforcer.ErrEnforcementFault)
		assert.True(t, ftx.rolledBack)
		require.NotNil(t, fault)
		assert.Equal(t, other.String(), fault.GotTenant)

		// The transaction is dead; nothing else goes through.
		_, err = tx.Exec(context.Background(), `SELECT 1`, tx.TenantID())
		require.Error(t, err)
	})
}

func TestTxCommit(t *testing.T) {
	t.Parallel()

	t.Run("commit verifies the setting still matches", func(t *testing.T) {
		t.Parallel()

		ftx := &fakeTx{}
		enf := enforcer.New(&fakePool{tx: ftx})
		tx, err := enf.Activate(scopedCtx(t, uuid.New()))
		require.NoError(t, err)

		require.NoError(t, tx.Commit(context.Background()))
		assert.True(t, ftx.committed)
	})

	t.Run("drifted setting is a fault, not a commit", func(t *testing.T) {
		t.Parallel()

		var fault *enforcer.Fault
		ftx := &fakeTx{driftTo: uuid.NewString()}
		enf := enforcer.New(&fakePool{tx: ftx},
			enforcer.WithFaultHandler(func(_ context.Context, f enforcer.Fault) { fault = &f }),
		)
		tx, err := enf.Activate(scopedCtx(t, uuid.New()))
		require.NoError(t, err)

		err = tx.Commit(context.Background())
		assert.ErrorIs(t, err, enforcer.ErrEnforcementFault)
		assert.False(t, ftx.committed)
		assert.True(t, ftx.rolledBack)
		require.NotNil(t, fault)
		assert.Equal(t, "commit", fault.Op)
	})

	t.Run("cleared setting is equally fatal", func(t *testing.T) {
		t.Parallel()

		ftx := &fakeTx{driftNull: true}
		enf := enforcer.New(&fakePool{tx: ftx})
		tx, err := enf.Activate(scopedCtx(t, uuid.New()))
		require.NoError(t, err)

		assert.ErrorIs(t, tx.Commit(context.Background()), enforcer.ErrEnforcementFault)
	})

	t.Run("rollback is idempotent", func(t *testing.T) {
		t.Parallel()

		ftx := &fakeTx{}
		enf := enforcer.New(&fakePool{tx: ftx})
		tx, err := enf.Activate(scopedCtx(t, uuid.New()))
		require.NoError(t, err)

		require.NoError(t, tx.Rollback(context.Background()))
		require.NoError(t, tx.Rollback(context.Background()))
	})
}

func TestEnableRowIsolationIdentifiers(t *testing.T) {
	t.Parallel()

	enf := &fakeTx{}
	for _, bad := range []string{"assets; DROP TABLE tenants", "Assets", "a b", ""} {
		err := enforcer.EnableRowIsolation(context.Background(), enf, bad, "tenant_id")
		assert.ErrorIs(t, err, enforcer.ErrInvalidIdentifier, bad)
	}
	assert.Empty(t, enf.execSQL)

	require.NoError(t, enforcer.EnableRowIsolation(context.Background(), enf, "assets", "tenant_id"))
	require.Len(t, enf.execSQL, 4)
	assert.Contains(t, enf.execSQL[3], "CREATE POLICY tenant_isolation ON assets")
	assert.Contains(t, enf.execSQL[3], "NULLIF", "policy must fail closed on a missing setting")
}
