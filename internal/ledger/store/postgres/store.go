package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"custos/internal/ledger"
	"custos/pkg/platform/sentinel"
	txcontext "custos/pkg/platform/tx"
)

// Store implements ledger.Store on PostgreSQL. The audit_ledger table should
// be provisioned with insert-only privileges for the service role; the store
// itself exposes no UPDATE or DELETE either, so immutability holds at both
// layers.
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

// Append inserts one entry. A duplicate sequence violates the primary key
// and surfaces as sentinel.ErrConflict, which the service treats as a lost
// race rather than corruption.
func (s *Store) Append(ctx context.Context, entry ledger.AuditEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal entry metadata: %w", err)
	}

	query := `
		INSERT INTO audit_ledger (
			sequence, timestamp, kind, actor_type, actor_ref,
			target, action, scope, metadata, previous_hash, entry_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		entry.Sequence,
		entry.Timestamp,
		string(entry.Kind),
		string(entry.Actor.Type),
		entry.Actor.Ref,
		entry.Target,
		entry.Action,
		entry.Scope,
		metadata,
		entry.PreviousHash,
		entry.EntryHash,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter in ascending sequence order.
func (s *Store) List(ctx context.Context, filter ledger.Filter) ([]ledger.AuditEntry, error) {
	query := `
		SELECT sequence, timestamp, kind, actor_type, actor_ref,
		       target, action, scope, metadata, previous_hash, entry_hash
		FROM audit_ledger
		WHERE ($1 = '' OR kind = $1)
		  AND ($2 = '' OR actor_ref = $2)
		  AND ($3 = '' OR target = $3)
		  AND ($4::timestamptz IS NULL OR timestamp >= $4)
		  AND ($5::timestamptz IS NULL OR timestamp <= $5)
		ORDER BY sequence ASC
	`

	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}

	rows, err := s.db.QueryContext(ctx, query,
		string(filter.Kind), filter.ActorRef, filter.Target, from, to)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// All returns the whole chain in ascending sequence order.
func (s *Store) All(ctx context.Context) ([]ledger.AuditEntry, error) {
	return s.List(ctx, ledger.Filter{})
}

// Last returns the newest entry.
func (s *Store) Last(ctx context.Context) (ledger.AuditEntry, bool, error) {
	query := `
		SELECT sequence, timestamp, kind, actor_type, actor_ref,
		       target, action, scope, metadata, previous_hash, entry_hash
		FROM audit_ledger
		ORDER BY sequence DESC
		LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.AuditEntry{}, false, nil
		}
		return ledger.AuditEntry{}, false, err
	}
	return entry, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (ledger.AuditEntry, error) {
	var (
		entry     ledger.AuditEntry
		kind      string
		actorType string
		metadata  []byte
	)
	err := row.Scan(
		&entry.Sequence,
		&entry.Timestamp,
		&kind,
		&actorType,
		&entry.Actor.Ref,
		&entry.Target,
		&entry.Action,
		&entry.Scope,
		&metadata,
		&entry.PreviousHash,
		&entry.EntryHash,
	)
	if err != nil {
		return ledger.AuditEntry{}, err
	}
	entry.Kind = ledger.EntryKind(kind)
	entry.Actor.Type = ledger.ActorType(actorType)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return ledger.AuditEntry{}, fmt.Errorf("unmarshal entry metadata: %w", err)
		}
	}
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]ledger.AuditEntry, error) {
	var entries []ledger.AuditEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}
