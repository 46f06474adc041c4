package audit

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var Migrations embed.FS

var auditColumns = []string{
	"id", "tenant_id", "action", "method", "resource", "resource_id",
	"result", "severity", "reason", "request_id", "ip", "error",
	"metadata", "created_at",
}

// PGStorage persists events to the append-only audit_events table. The
// package only ever inserts and selects; there is no mutation API.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a storage over the given pool. Run the embedded
// Migrations before first use.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	if pool == nil {
		panic("audit: pool is required")
	}
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Store(ctx context.Context, event Event) error {
	return s.StoreBatch(ctx, []Event{event})
}

func (s *PGStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]any, len(events))
	for i, e := range events {
		rows[i] = []any{
			e.ID, e.TenantID, e.Action, e.Method, e.Resource, e.ResourceID,
			string(e.Result), string(e.Severity), e.Reason, e.RequestID, e.IP, e.Error,
			e.Metadata, e.CreatedAt,
		}
	}

	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"audit_events"}, auditColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

// Query returns events matching the criteria, newest first.
func (s *PGStorage) Query(ctx context.Context, c Criteria) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if c.TenantID != uuid.Nil {
		where = append(where, "tenant_id = "+arg(c.TenantID))
	}
	if c.Action != "" {
		where = append(where, "action = "+arg(c.Action))
	}
	if c.Result != "" {
		where = append(where, "result = "+arg(string(c.Result)))
	}
	if !c.Since.IsZero() {
		where = append(where, "created_at >= "+arg(c.Since))
	}
	if !c.Until.IsZero() {
		where = append(where, "created_at <= "+arg(c.Until))
	}

	query := "SELECT " + strings.Join(auditColumns, ", ") + " FROM audit_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if c.Limit > 0 {
		query += " LIMIT " + arg(c.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.Action, &e.Method, &e.Resource, &e.ResourceID,
			&e.Result, &e.Severity, &e.Reason, &e.RequestID, &e.IP, &e.Error,
			&e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, errors.Join(ErrStorageUnavailable, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}
	return out, nil
}
