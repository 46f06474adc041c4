// Package opensearch connects the audit trail to an OpenSearch cluster.
//
// audit.OpenSearchStorage bulk-indexes audit events here so operators can
// search and dashboard enforcement decisions without touching the primary
// database. New verifies cluster reachability before returning.
//
//	client, err := opensearch.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	storage := audit.NewOpenSearchStorage(client, "audit-events")
package opensearch
