package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"custos/internal/retention"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
	txcontext "custos/pkg/platform/tx"
)

// Store implements retention.Store on PostgreSQL. Windows are stored as
// nullable microsecond counts; a NULL window means indefinite retention.
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

func (s *Store) SavePolicy(ctx context.Context, policy *retention.RetentionPolicy) error {
	query := `
		INSERT INTO retention_policies (
			id, tenant_id, category, window_us, active, created_at, retired_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		policy.ID.String(),
		policy.TenantID.String(),
		policy.Category,
		windowMicros(policy.Window),
		policy.Active,
		policy.CreatedAt,
		policy.RetiredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert retention policy: %w", err)
	}
	return nil
}

func (s *Store) UpdatePolicy(ctx context.Context, policy *retention.RetentionPolicy) error {
	query := `
		UPDATE retention_policies
		SET active = $2, retired_at = $3
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		policy.ID.String(), policy.Active, policy.RetiredAt)
	if err != nil {
		return fmt.Errorf("update retention policy: %w", err)
	}
	return requireAffected(result)
}

func (s *Store) GetPolicy(ctx context.Context, policyID id.PolicyID) (*retention.RetentionPolicy, error) {
	query := selectPolicies + ` WHERE id = $1`
	return s.queryPolicy(ctx, query, policyID.String())
}

func (s *Store) FindActivePolicy(ctx context.Context, tenantID id.TenantID) (*retention.RetentionPolicy, error) {
	query := selectPolicies + ` WHERE tenant_id = $1 AND active`
	return s.queryPolicy(ctx, query, tenantID.String())
}

func (s *Store) queryPolicy(ctx context.Context, query string, arg any) (*retention.RetentionPolicy, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	policy, err := scanPolicy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return policy, nil
}

func (s *Store) SaveSchedule(ctx context.Context, schedule *retention.RetentionSchedule) error {
	query := `
		INSERT INTO retention_schedules (
			id, tenant_id, data_ref, policy_id, due_at,
			legal_hold_until, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		schedule.ID.String(),
		schedule.TenantID.String(),
		schedule.DataRef,
		schedule.PolicyID.String(),
		schedule.DueAt,
		schedule.LegalHoldUntil,
		string(schedule.Status),
		schedule.CreatedAt,
		schedule.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert retention schedule: %w", err)
	}
	return nil
}

func (s *Store) UpdateSchedule(ctx context.Context, schedule *retention.RetentionSchedule) error {
	query := `
		UPDATE retention_schedules
		SET legal_hold_until = $2, status = $3, updated_at = $4
		WHERE id = $1
	`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		schedule.ID.String(),
		schedule.LegalHoldUntil,
		string(schedule.Status),
		schedule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update retention schedule: %w", err)
	}
	return requireAffected(result)
}

func (s *Store) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*retention.RetentionSchedule, error) {
	query := selectSchedules + ` WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, scheduleID.String())
	schedule, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return schedule, nil
}

func (s *Store) ListActiveSchedules(ctx context.Context) ([]*retention.RetentionSchedule, error) {
	query := selectSchedules + `
		WHERE status = 'active'
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query retention schedules: %w", err)
	}
	defer rows.Close()

	return scanSchedules(rows)
}

func (s *Store) ListDueBetween(ctx context.Context, from, to time.Time) ([]*retention.RetentionSchedule, error) {
	query := selectSchedules + `
		WHERE status = 'active'
		  AND due_at IS NOT NULL
		  AND due_at >= $1 AND due_at <= $2
		ORDER BY due_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query due retention schedules: %w", err)
	}
	defer rows.Close()

	return scanSchedules(rows)
}

const selectPolicies = `
	SELECT id, tenant_id, category, window_us, active, created_at, retired_at
	FROM retention_policies
`

const selectSchedules = `
	SELECT id, tenant_id, data_ref, policy_id, due_at,
	       legal_hold_until, status, created_at, updated_at
	FROM retention_schedules
`

func windowMicros(window *time.Duration) any {
	if window == nil {
		return nil
	}
	return window.Microseconds()
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*retention.RetentionPolicy, error) {
	var (
		policy    retention.RetentionPolicy
		policyID  string
		tenantID  string
		windowUS  sql.NullInt64
		retiredAt sql.NullTime
	)
	err := row.Scan(
		&policyID,
		&tenantID,
		&policy.Category,
		&windowUS,
		&policy.Active,
		&policy.CreatedAt,
		&retiredAt,
	)
	if err != nil {
		return nil, err
	}

	if policy.ID, err = id.ParsePolicyID(policyID); err != nil {
		return nil, fmt.Errorf("parse policy id: %w", err)
	}
	if policy.TenantID, err = id.ParseTenantID(tenantID); err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	if windowUS.Valid {
		window := time.Duration(windowUS.Int64) * time.Microsecond
		policy.Window = &window
	}
	if retiredAt.Valid {
		t := retiredAt.Time
		policy.RetiredAt = &t
	}
	return &policy, nil
}

func scanSchedule(row rowScanner) (*retention.RetentionSchedule, error) {
	var (
		schedule   retention.RetentionSchedule
		scheduleID string
		tenantID   string
		policyID   string
		dueAt      sql.NullTime
		holdUntil  sql.NullTime
		status     string
	)
	err := row.Scan(
		&scheduleID,
		&tenantID,
		&schedule.DataRef,
		&policyID,
		&dueAt,
		&holdUntil,
		&status,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if schedule.ID, err = id.ParseScheduleID(scheduleID); err != nil {
		return nil, fmt.Errorf("parse schedule id: %w", err)
	}
	if schedule.TenantID, err = id.ParseTenantID(tenantID); err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	if schedule.PolicyID, err = id.ParsePolicyID(policyID); err != nil {
		return nil, fmt.Errorf("parse policy id: %w", err)
	}
	if dueAt.Valid {
		t := dueAt.Time
		schedule.DueAt = &t
	}
	if holdUntil.Valid {
		t := holdUntil.Time
		schedule.LegalHoldUntil = &t
	}
	schedule.Status = retention.ScheduleStatus(status)
	return &schedule, nil
}

func scanSchedules(rows *sql.Rows) ([]*retention.RetentionSchedule, error) {
	var schedules []*retention.RetentionSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan retention schedule: %w", err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retention schedules: %w", err)
	}
	return schedules, nil
}
