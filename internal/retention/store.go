package retention

import (
	"context"
	"time"

	id "custos/pkg/domain"
)

// PolicyStore persists retention policies. Policies are retired, never
// removed.
type PolicyStore interface {
	SavePolicy(ctx context.Context, policy *RetentionPolicy) error
	UpdatePolicy(ctx context.Context, policy *RetentionPolicy) error
	GetPolicy(ctx context.Context, policyID id.PolicyID) (*RetentionPolicy, error)
	// FindActivePolicy returns the single active policy for the tenant, or
	// sentinel.ErrNotFound. The one-active-policy invariant makes the
	// singular return safe.
	FindActivePolicy(ctx context.Context, tenantID id.TenantID) (*RetentionPolicy, error)
}

// ScheduleStore persists retention schedules.
type ScheduleStore interface {
	SaveSchedule(ctx context.Context, schedule *RetentionSchedule) error
	UpdateSchedule(ctx context.Context, schedule *RetentionSchedule) error
	GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*RetentionSchedule, error)
	// ListActiveSchedules returns every schedule still in the active
	// status; the sweep walks this set.
	ListActiveSchedules(ctx context.Context) ([]*RetentionSchedule, error)
	// ListDueBetween returns active schedules whose due-date falls in
	// [from, to], ascending by due-date.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*RetentionSchedule, error)
}

// Store is the combined persistence surface the service wires against.
type Store interface {
	PolicyStore
	ScheduleStore
}
