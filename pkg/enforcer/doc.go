// Package enforcer makes cross-tenant data access structurally impossible
// through two independent layers over PostgreSQL.
//
// The access layer: business logic cannot run a query without the active
// scope's TenantFilter among its arguments. A missing filter is refused
// before the query leaves the process; a filter naming a different tenant
// aborts the transaction as an enforcement fault.
//
// The store layer: Activate sets the connection's app.tenant_id variable
// transaction-locally, and row-level-security policies installed with
// EnableRowIsolation restrict visible rows to that tenant. A NULL setting
// matches nothing, so the database fails closed independently of anything
// the application does.
//
// The layers are deliberately redundant. Either alone stops an honest
// mistake; together they also catch the dishonest ones, because any
// disagreement between the filter, the scope, and the connection setting
// is treated as a fatal fault: transaction aborted, event escalated at
// critical severity, never retried.
//
//	tx, err := enf.Activate(ctx) // ctx must carry a bound scope
//	if err != nil { ... }
//	defer tx.Rollback(ctx)
//
//	rows, err := tx.Query(ctx,
//		`SELECT id, name FROM assets WHERE tenant_id = $1 AND kind = $2`,
//		tx.TenantID(), kind)
//
// Pool hygiene is part of the contract: GuardPool resets the tenant
// setting on every connection release and destroys connections that cannot
// be proven clean, so a pooled connection never carries a previous
// borrower's scope.
package enforcer
