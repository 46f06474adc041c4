// Package audit records every decision the isolation layer makes:
// resolution attempts, scope bindings, enforcement activations and faults,
// quota checks, and administrative directory operations.
//
// Events are immutable and append-only. The Logger assembles them from
// the request context (tenant scope, request ID, client IP) plus explicit
// event options, and hands them to a Writer. In production that writer is
// the AsyncWriter: recording never blocks the request path, events are
// batched into a Storage backend, and when the backend misbehaves they
// divert to a local NDJSON Spool instead of disappearing. A sustained
// failure streak fires the outage hook. An audit outage is an incident to
// escalate, not a reason to stop serving tenants.
//
// Storage backends: Postgres (append-only table), MongoDB, OpenSearch
// (for external dashboards), and an in-memory store for tests. Rotated
// spool segments can be shipped to S3 by the S3Archiver.
package audit
