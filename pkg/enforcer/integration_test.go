package enforcer_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/enforcer"
	"github.com/dmitrymomot/tenantkit/pkg/scope"
)

// rlsPool connects to DATABASE_URL with the connection-release guard
// installed and a single connection, so reuse between tenants is
// deterministic. Tests are skipped when no database is available, or when
// the connecting role bypasses row level security (superusers do, which
// would make the store-enforced layer unobservable).
func rlsPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping postgres integration test")
	}

	ctx := context.Background()
	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.MaxConns = 1
	enforcer.GuardPool(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var bypasses bool
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT rolsuper OR rolbypassrls FROM pg_roles WHERE rolname = current_user`,
	).Scan(&bypasses))
	if bypasses {
		t.Skip("current role bypasses row level security; skipping")
	}

	return pool
}

func setupItems(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	ctx := context.Background()

	table := "rls_items_" + uuid.NewString()[:8]
	_, err := pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE %s (id uuid PRIMARY KEY, tenant_id uuid NOT NULL, name text NOT NULL)`, table))
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table))
	})

	require.NoError(t, enforcer.EnableRowIsolation(ctx, pool, table, "tenant_id"))
	return table
}

func activate(t *testing.T, enf *enforcer.Enforcer, id uuid.UUID) *enforcer.Tx {
	t.Helper()
	ctx, err := scope.Bind(context.Background(), scope.New(id, scope.MethodAPIKey))
	require.NoError(t, err)
	tx, err := enf.Activate(ctx)
	require.NoError(t, err)
	return tx
}

func TestRowIsolationIntegration(t *testing.T) {
	pool := rlsPool(t)
	table := setupItems(t, pool)
	enf := enforcer.New(pool)
	ctx := context.Background()

	acme := uuid.New()
	beta := uuid.New()
	secretID := uuid.New()

	// Seed one row per tenant through properly scoped transactions.
	for tid, name := range map[uuid.UUID]string{acme: "secret", beta: "public"} {
		tx := activate(t, enf, tid)
		rowID := uuid.New()
		if tid == acme {
			rowID = secretID
		}
		_, err := tx.Exec(ctx, fmt.Sprintf(
			`INSERT INTO %s (id, tenant_id, name) VALUES ($1, $2, $3)`, table),
			rowID, tx.TenantID(), name)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
	}

	t.Run("direct id lookup across tenants finds nothing", func(t *testing.T) {
		tx := activate(t, enf, beta)
		defer tx.Rollback(ctx)

		var name string
		err := tx.QueryRow(ctx, fmt.Sprintf(
			`SELECT name FROM %s WHERE id = $1 AND tenant_id = $2`, table),
			secretID, tx.TenantID()).Scan(&name)
		assert.Error(t, err, "row exists but belongs to another tenant")
	})

	t.Run("widened predicate is trimmed by the row policy", func(t *testing.T) {
		tx := activate(t, enf, beta)
		defer tx.Rollback(ctx)

		// Layer checks pass: the filter names the right tenant. The query
		// text, however, tries to see everything; the policy trims it.
		rows, err := tx.Query(ctx, fmt.Sprintf(
			`SELECT name FROM %s WHERE tenant_id = $1 OR true`, table), tx.TenantID())
		require.NoError(t, err)
		defer rows.Close()

		var names []string
		for rows.Next() {
			var n string
			require.NoError(t, rows.Scan(&n))
			names = append(names, n)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"public"}, names)
	})

	t.Run("cross-tenant write is rejected by the check clause", func(t *testing.T) {
		tx := activate(t, enf, beta)
		defer tx.Rollback(ctx)

		_, err := tx.Exec(ctx, fmt.Sprintf(
			`INSERT INTO %s (id, tenant_id, name) SELECT $1, $2, $3 WHERE $4::uuid IS NOT NULL`, table),
			uuid.New(), acme, "smuggled", tx.TenantID())
		assert.Error(t, err, "writing a row for another tenant must fail")
	})

	t.Run("released connections carry no tenant setting", func(t *testing.T) {
		tx := activate(t, enf, acme)
		require.NoError(t, tx.Rollback(ctx))

		// MaxConns is 1, so this reuses the connection the acme
		// transaction ran on. The release guard must have cleared it.
		var current *string
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT NULLIF(current_setting('app.tenant_id', true), '')`).Scan(&current))
		assert.Nil(t, current)
	})
}
