// Package mongo connects the audit trail to MongoDB.
//
// The only consumer in this module is audit.MongoStorage, which appends
// audit events to a collection for deployments that keep their audit data
// outside Postgres. Connect retries through transient startup failures and
// Healthcheck plugs into readiness probes.
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "tenantkit")
//	if err != nil {
//		return err
//	}
//	storage := audit.NewMongoStorage(db)
package mongo
