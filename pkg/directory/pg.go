package directory

import (
	"context"
	"embed"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Migrations holds the directory schema, applied with pg.MigrateFS.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// PGStore is the production Store over PostgreSQL. Tenants and their
// resolution keys live in separate tables; key uniqueness per type is a
// partial unique index over non-invalidated rows, so the "one key, one
// tenant" property holds in the schema, not just in code.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("directory: pg store requires a pool")
	}
	return &PGStore{pool: pool}
}

const recordColumns = `t.id, t.name, t.subdomain, COALESCE(t.custom_domain, ''),
	COALESCE(t.api_key_hash, ''), t.state, t.plan_id, t.created_at, t.updated_at, t.deleted_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var state string
	err := row.Scan(&rec.ID, &rec.Name, &rec.Subdomain, &rec.CustomDomain,
		&rec.APIKeyHash, &state, &rec.PlanID, &rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, tenant.ErrNotFound
		}
		return nil, err
	}
	rec.State = tenant.State(state)
	return &rec, nil
}

func (s *PGStore) Create(ctx context.Context, rec *Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO tenants (id, name, subdomain, custom_domain, api_key_hash, state, plan_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, now(), now())`,
		rec.ID, rec.Name, rec.Subdomain, rec.CustomDomain, rec.APIKeyHash, string(rec.State), rec.PlanID,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrKeyTaken
		}
		return err
	}

	for _, key := range rec.Keys() {
		_, err = tx.Exec(ctx, `
			INSERT INTO resolution_keys (tenant_id, key_type, key_value, created_at)
			VALUES ($1, $2, $3, now())`,
			rec.ID, string(key.Type), key.Value,
		)
		if err != nil {
			if pg.IsDuplicateKeyError(err) {
				return ErrKeyTaken
			}
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PGStore) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM tenants t WHERE t.id = $1`, id)
	return scanRecord(row)
}

func (s *PGStore) GetByKey(ctx context.Context, key tenant.Key, graceCutoff time.Time) (*Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM resolution_keys k
		JOIN tenants t ON t.id = k.tenant_id
		WHERE k.key_type = $1 AND k.key_value = $2
		  AND (k.invalidated_at IS NULL OR k.invalidated_at > $3)`,
		string(key.Type), key.Value, graceCutoff,
	)
	return scanRecord(row)
}

func (s *PGStore) State(ctx context.Context, id uuid.UUID) (tenant.State, error) {
	var state string
	err := s.pool.QueryRow(ctx, `SELECT state FROM tenants WHERE id = $1`, id).Scan(&state)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", tenant.ErrNotFound
		}
		return "", err
	}
	return tenant.State(state), nil
}

func (s *PGStore) UpdateState(ctx context.Context, id uuid.UUID, state tenant.State) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants
		SET state = $2,
		    updated_at = now(),
		    deleted_at = CASE WHEN $2 = 'deleted' THEN now() ELSE deleted_at END
		WHERE id = $1`,
		id, string(state),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (s *PGStore) RotateAPIKey(ctx context.Context, id uuid.UUID, newHash string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE resolution_keys SET invalidated_at = now()
		WHERE tenant_id = $1 AND key_type = $2 AND invalidated_at IS NULL`,
		id, string(tenant.KeyTypeAPIKeyHash),
	)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `UPDATE tenants SET api_key_hash = $2, updated_at = now() WHERE id = $1`, id, newHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tenant.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO resolution_keys (tenant_id, key_type, key_value, created_at)
		VALUES ($1, $2, $3, now())`,
		id, string(tenant.KeyTypeAPIKeyHash), newHash,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrKeyTaken
		}
		return err
	}

	return tx.Commit(ctx)
}

var _ Store = (*PGStore)(nil)
var _ Store = (*MemoryStore)(nil)
