package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"custos/internal/consent"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
	txcontext "custos/pkg/platform/tx"
)

// Store implements consent.Store on PostgreSQL. There is deliberately no
// DELETE: consent history is permanent, only status moves.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Save(ctx context.Context, record *consent.Record) error {
	query := `
		INSERT INTO consent_records (
			id, subject_id, scope, status, granted_at, updated_at,
			expires_at, condition, audit_sequence
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.ID.String(),
		record.Subject.String(),
		string(record.Scope),
		string(record.Status),
		record.GrantedAt,
		record.UpdatedAt,
		record.ExpiresAt,
		record.Condition,
		record.AuditSequence,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent record: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, record *consent.Record) error {
	query := `
		UPDATE consent_records
		SET status = $2, updated_at = $3, audit_sequence = $4
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		record.ID.String(),
		string(record.Status),
		record.UpdatedAt,
		record.AuditSequence,
	)
	if err != nil {
		return fmt.Errorf("update consent record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) FindGranted(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) (*consent.Record, error) {
	query := selectRecords + `
		WHERE subject_id = $1 AND scope = $2 AND status = 'granted'
	`
	row := s.db.QueryRowContext(ctx, query, subject.String(), string(scope))
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *Store) ListBySubject(ctx context.Context, subject id.SubjectID) ([]*consent.Record, error) {
	query := selectRecords + `
		WHERE subject_id = $1
		ORDER BY granted_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subject.String())
	if err != nil {
		return nil, fmt.Errorf("query consent records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) ListGrantedExpiredBefore(ctx context.Context, cutoff time.Time) ([]*consent.Record, error) {
	query := selectRecords + `
		WHERE status = 'granted' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expired consent records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

const selectRecords = `
	SELECT id, subject_id, scope, status, granted_at, updated_at,
	       expires_at, condition, audit_sequence
	FROM consent_records
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*consent.Record, error) {
	var (
		record    consent.Record
		recordID  string
		subjectID string
		scope     string
		status    string
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&recordID,
		&subjectID,
		&scope,
		&status,
		&record.GrantedAt,
		&record.UpdatedAt,
		&expiresAt,
		&record.Condition,
		&record.AuditSequence,
	)
	if err != nil {
		return nil, err
	}

	if record.ID, err = id.ParseConsentID(recordID); err != nil {
		return nil, fmt.Errorf("parse consent id: %w", err)
	}
	if record.Subject, err = id.ParseSubjectID(subjectID); err != nil {
		return nil, fmt.Errorf("parse subject id: %w", err)
	}
	record.Scope = id.ConsentScope(scope)
	record.Status = consent.Status(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		record.ExpiresAt = &t
	}
	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]*consent.Record, error) {
	var records []*consent.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent records: %w", err)
	}
	return records, nil
}
