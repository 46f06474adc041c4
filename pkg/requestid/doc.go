// Package requestid correlates everything a request caused under one
// identifier.
//
// Middleware reuses a valid client-supplied X-Request-ID or generates a
// UUID, stores it in the request context and echoes it in the response.
// The audit trail stamps the ID on every event it records for the request,
// and LoggerExtractor attaches it to log records, so an isolation denial
// can be traced from the audit event to the exact log lines around it.
package requestid
