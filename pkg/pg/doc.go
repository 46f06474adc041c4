// Package pg bootstraps the PostgreSQL layer the isolation stack runs on:
// a pgx/v5 connection pool with retrying startup, goose schema migrations,
// a health check and error classification helpers.
//
// Connect accepts configuration hooks so pool behavior required by other
// packages can be installed before any connection exists. The enforcer's
// release guard is the canonical hook: it clears the per-connection tenant
// visibility setting every time a connection returns to the pool.
//
//	pool, err := pg.Connect(ctx, cfg, enforcer.GuardPool)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
// Schema-owning packages embed their migrations and apply them through
// MigrateFS during startup:
//
//	if err := pg.MigrateFS(ctx, pool, directory.Migrations, "migrations", log); err != nil {
//		return err
//	}
//	if err := pg.MigrateFS(ctx, pool, audit.Migrations, "migrations", log); err != nil {
//		return err
//	}
//
// IsNotFoundError and IsDuplicateKeyError classify pgx errors so stores can
// translate them into their own sentinels.
package pg
