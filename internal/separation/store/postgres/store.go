package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"custos/internal/separation"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
	txcontext "custos/pkg/platform/tx"
)

// IdentityStore implements separation.IdentityStore on PostgreSQL.
type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execer(ctx context.Context, db *sql.DB) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return db
}

func (s *IdentityStore) Save(ctx context.Context, record *separation.IdentityRecord) error {
	query := `
		INSERT INTO identity_records (id, tenant_id, display_name, email, opaque_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := execer(ctx, s.db).ExecContext(ctx, query,
		record.ID.String(),
		record.TenantID.String(),
		record.DisplayName,
		record.Email,
		record.OpaqueRef,
		record.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert identity record: %w", err)
	}
	return nil
}

func (s *IdentityStore) Get(ctx context.Context, identityID id.IdentityID) (*separation.IdentityRecord, error) {
	return s.queryOne(ctx, selectIdentities+` WHERE id = $1`, identityID.String())
}

func (s *IdentityStore) FindByReference(ctx context.Context, opaqueRef string) (*separation.IdentityRecord, error) {
	return s.queryOne(ctx, selectIdentities+` WHERE opaque_ref = $1`, opaqueRef)
}

func (s *IdentityStore) queryOne(ctx context.Context, query string, arg any) (*separation.IdentityRecord, error) {
	var (
		record     separation.IdentityRecord
		identityID string
		tenantID   string
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&identityID,
		&tenantID,
		&record.DisplayName,
		&record.Email,
		&record.OpaqueRef,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query identity record: %w", err)
	}
	if record.ID, err = id.ParseIdentityID(identityID); err != nil {
		return nil, fmt.Errorf("parse identity id: %w", err)
	}
	if record.TenantID, err = id.ParseTenantID(tenantID); err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	return &record, nil
}

func (s *IdentityStore) Delete(ctx context.Context, identityID id.IdentityID) error {
	result, err := execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM identity_records WHERE id = $1`, identityID.String())
	if err != nil {
		return fmt.Errorf("delete identity record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const selectIdentities = `
	SELECT id, tenant_id, display_name, email, opaque_ref, created_at
	FROM identity_records
`

// PatternStore implements separation.PatternStore on PostgreSQL. The table
// carries no identity column; opaque_ref is the only join key, and no
// foreign key ties it back to identity_records.
type PatternStore struct {
	db *sql.DB
}

func NewPatternStore(db *sql.DB) *PatternStore {
	return &PatternStore{db: db}
}

func (s *PatternStore) Save(ctx context.Context, record *separation.PatternRecord) error {
	attributes, err := json.Marshal(record.Attributes)
	if err != nil {
		return fmt.Errorf("marshal pattern attributes: %w", err)
	}

	query := `
		INSERT INTO pattern_records (id, opaque_ref, kind, attributes, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = execer(ctx, s.db).ExecContext(ctx, query,
		record.ID.String(),
		record.OpaqueRef,
		record.Kind,
		attributes,
		record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pattern record: %w", err)
	}
	return nil
}

func (s *PatternStore) ListByReference(ctx context.Context, opaqueRef string) ([]*separation.PatternRecord, error) {
	query := `
		SELECT id, opaque_ref, kind, attributes, recorded_at
		FROM pattern_records
		WHERE opaque_ref = $1
		ORDER BY recorded_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, opaqueRef)
	if err != nil {
		return nil, fmt.Errorf("query pattern records: %w", err)
	}
	defer rows.Close()

	var records []*separation.PatternRecord
	for rows.Next() {
		var (
			record     separation.PatternRecord
			recordID   string
			attributes []byte
		)
		if err := rows.Scan(&recordID, &record.OpaqueRef, &record.Kind, &attributes, &record.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan pattern record: %w", err)
		}
		if record.ID, err = parseUUID(recordID); err != nil {
			return nil, err
		}
		if len(attributes) > 0 {
			if err := json.Unmarshal(attributes, &record.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal pattern attributes: %w", err)
			}
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pattern records: %w", err)
	}
	return records, nil
}

func (s *PatternStore) DeleteByReference(ctx context.Context, opaqueRef string) (int, error) {
	result, err := execer(ctx, s.db).ExecContext(ctx,
		`DELETE FROM pattern_records WHERE opaque_ref = $1`, opaqueRef)
	if err != nil {
		return 0, fmt.Errorf("delete pattern records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete pattern records: %w", err)
	}
	return int(affected), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("parse pattern record id: %w", err)
	}
	return parsed, nil
}
