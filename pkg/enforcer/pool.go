package enforcer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// resetTimeout bounds the hygiene statement on connection release.
const resetTimeout = 2 * time.Second

// GuardPool installs release-time hygiene on a pool configuration: every
// connection returning to the pool has its tenant setting reset, and a
// connection whose reset fails is destroyed rather than recycled. Pooled
// connections are shared across tenants; this hook is what guarantees the
// next borrower cannot inherit the previous borrower's scope even on error
// and cancellation paths, where the releasing request never ran its own
// cleanup.
//
// Activate applies the setting transaction-locally, so it normally reverts
// on its own; the reset exists for session-level writes and for connections
// released mid-failure.
func GuardPool(cfg *pgxpool.Config) {
	if cfg == nil {
		panic("enforcer: nil pool config")
	}

	prev := cfg.AfterRelease
	cfg.AfterRelease = func(conn *pgx.Conn) bool {
		ctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
		defer cancel()

		if _, err := conn.Exec(ctx, "RESET "+tenantSetting); err != nil {
			// A connection we cannot prove clean does not go back in the pool.
			return false
		}
		if prev != nil {
			return prev(conn)
		}
		return true
	}
}
