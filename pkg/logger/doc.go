// Package logger builds slog loggers whose records carry request-scoped
// context: tenant scope, request ID and client IP are injected by context
// extractors at log time, not at logger construction.
//
//	log := logger.New(
//		logger.WithProduction("tenant-gateway"),
//		logger.WithContextExtractors(
//			scope.LoggerExtractor(),
//			requestid.LoggerExtractor(),
//			clientip.LoggerExtractor(),
//		),
//	)
//	logger.SetAsDefault(log)
//
// A log line emitted anywhere below the middleware chain then identifies
// the tenant it was produced for, which is what makes per-tenant debugging
// of isolation decisions possible.
//
// Attr helpers (TenantID, RequestID, Method, Component) keep attribute
// keys consistent across packages.
package logger
