package enforcer

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
)

// identPattern admits only plain lowercase identifiers, so the DDL helpers
// cannot be used as an injection vector.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// DB is the statement-execution slice of a pool or connection used by the
// policy helpers at migration time.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnableRowIsolation installs the store-enforced layer on a table: row
// level security is enabled and forced (so even the table owner cannot
// bypass it), and a policy restricts visible and writable rows to the
// tenant named by the connection's tenant setting.
//
// NULLIF makes the policy fail closed: with no tenant setting on the
// connection the predicate is NULL and no rows qualify. There is no
// "unfiltered" state, only an empty one.
func EnableRowIsolation(ctx context.Context, db DB, table, column string) error {
	for _, ident := range []string{table, column} {
		if !identPattern.MatchString(ident) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, ident)
		}
	}

	predicate := fmt.Sprintf(`%s = NULLIF(current_setting('%s', true), '')::uuid`, column, tenantSetting)

	stmts := []string{
		fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, table),
		fmt.Sprintf(`ALTER TABLE %s FORCE ROW LEVEL SECURITY`, table),
		fmt.Sprintf(`DROP POLICY IF EXISTS tenant_isolation ON %s`, table),
		fmt.Sprintf(`CREATE POLICY tenant_isolation ON %s USING (%s) WITH CHECK (%s)`, table, predicate, predicate),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("enforcer: applying row isolation to %s: %w", table, err)
		}
	}
	return nil
}
