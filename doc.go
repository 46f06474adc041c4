// Package tenantkit is a multi-tenant request isolation and data-access
// layer for SaaS applications that share infrastructure between tenants.
//
// The building blocks live under pkg/: tenant resolution with a cache
// (pkg/tenant), request scope propagation (pkg/scope), two-layer data
// access enforcement over Postgres row-level security (pkg/enforcer), the
// authoritative tenant directory (pkg/directory), plan quota ceilings
// (pkg/quota) and the append-only audit trail (pkg/audit). Each package is
// usable on its own.
//
// Stack composes them into one middleware chain with a fixed ordering
// guarantee: a request's tenant is resolved and its scope bound before any
// quota accounting or data access happens on its behalf.
//
//	stack, err := tenantkit.New(tenantkit.Config{BaseDomain: "example.com"}, tenantkit.Deps{
//		Directory: dir,
//		Hasher:    hasher,
//		Pool:      pool,
//		Quota:     quotaSvc,
//		Audit:     auditLogger,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", stack.Handler(mux))
//
// Inside handlers, data access goes through the enforcer:
//
//	tx, err := stack.Enforcer().Activate(r.Context())
//	if err != nil { ... }
//	defer tx.Rollback(r.Context())
//	rows, err := tx.Query(r.Context(), "SELECT ... WHERE tenant_id = $1", tx.TenantID())
package tenantkit
