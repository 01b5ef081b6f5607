package retention

import (
	"time"

	id "custos/pkg/domain"
)

// RetentionPolicy fixes a retention window for one data category within a
// tenant. A nil Window means indefinite retention: schedules bound to the
// policy never become due. At most one policy per tenant is active; creating
// a new one retires the old.
type RetentionPolicy struct {
	ID        id.PolicyID    `json:"id"`
	TenantID  id.TenantID    `json:"tenant_id"`
	Category  string         `json:"category"`
	Window    *time.Duration `json:"window,omitempty"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	RetiredAt *time.Time     `json:"retired_at,omitempty"`
}

// ScheduleStatus is the lifecycle state of one retention schedule.
type ScheduleStatus string

const (
	ScheduleActive ScheduleStatus = "active"
	// SchedulePendingDeletion marks a schedule the sweep has already
	// committed to the audit trail; the downstream purge owns it now.
	SchedulePendingDeletion ScheduleStatus = "pending_deletion"
)

// RetentionSchedule binds one data reference to one policy. DataRef is the
// opaque reference into the pattern store, never an identity id.
type RetentionSchedule struct {
	ID             id.ScheduleID  `json:"id"`
	TenantID       id.TenantID    `json:"tenant_id"`
	DataRef        string         `json:"data_ref"`
	PolicyID       id.PolicyID    `json:"policy_id"`
	DueAt          *time.Time     `json:"due_at,omitempty"`
	LegalHoldUntil *time.Time     `json:"legal_hold_until,omitempty"`
	Status         ScheduleStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsUnderHoldAt reports whether a legal hold suppresses deletion at the
// given instant. A hold wins over any due-date, however far past.
func (s RetentionSchedule) IsUnderHoldAt(now time.Time) bool {
	return s.LegalHoldUntil != nil && now.Before(*s.LegalHoldUntil)
}

// IsDueAt reports whether the schedule's due-date has passed. Indefinite
// schedules are never due.
func (s RetentionSchedule) IsDueAt(now time.Time) bool {
	return s.DueAt != nil && !now.Before(*s.DueAt)
}

// SweepResult summarizes one deletion sweep.
type SweepResult struct {
	// Processed counts every active schedule the sweep examined.
	Processed int `json:"processed"`
	// Deleted counts schedules transitioned to pending-deletion and purged.
	Deleted int `json:"deleted"`
	// HeldBack counts past-due schedules an active legal hold protected.
	HeldBack int `json:"held_back"`
}
