package retention

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"custos/internal/ledger"
	"custos/internal/retention/metrics"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/sentinel"
	"custos/pkg/requestcontext"
)

// Recorder is the slice of the ledger retention writes through.
type Recorder interface {
	Append(ctx context.Context, p ledger.AppendParams) (ledger.AuditEntry, error)
}

// Purger removes the pattern data behind an opaque reference once a sweep
// commits a schedule to deletion.
type Purger interface {
	PurgeByReference(ctx context.Context, dataRef string) error
}

// Service computes deletion due-dates from policy windows, honors legal
// holds, and drives the periodic sweep.
type Service struct {
	store    Store
	recorder Recorder
	purger   Purger
	logger   *slog.Logger
	metrics  *metrics.Metrics

	sweeps singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPurger wires the downstream data-separation purge. Without it the
// sweep only marks schedules pending-deletion.
func WithPurger(purger Purger) Option {
	return func(s *Service) { s.purger = purger }
}

func NewService(store Store, recorder Recorder, opts ...Option) *Service {
	svc := &Service{store: store, recorder: recorder}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreatePolicyParams struct {
	TenantID id.TenantID
	Category string
	// Window is the retention duration; nil means indefinite retention.
	Window *time.Duration
}

// CreatePolicy activates a new policy for the tenant, retiring the prior
// active one first so the one-active-policy invariant holds throughout.
func (s *Service) CreatePolicy(ctx context.Context, params CreatePolicyParams) (*RetentionPolicy, error) {
	if params.TenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant is required")
	}
	if params.Category == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "data category is required")
	}
	if params.Window != nil && *params.Window <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "retention window must be positive")
	}
	now := requestcontext.Now(ctx)

	prior, err := s.store.FindActivePolicy(ctx, params.TenantID)
	switch {
	case err == nil:
		if err := s.retirePolicy(ctx, prior, now); err != nil {
			return nil, err
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// First policy for this tenant.
	default:
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "policy store read failed", err)
	}

	policy := &RetentionPolicy{
		ID:        id.NewPolicyID(),
		TenantID:  params.TenantID,
		Category:  params.Category,
		Window:    params.Window,
		Active:    true,
		CreatedAt: now,
	}

	metadata := map[string]string{"category": policy.Category}
	if policy.Window != nil {
		metadata["window"] = policy.Window.String()
	} else {
		metadata["window"] = "indefinite"
	}
	if _, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:     ledger.KindPolicyCreated,
		Actor:    s.actor(ctx),
		Target:   policy.ID.String(),
		Action:   "created retention policy",
		Metadata: metadata,
	}); err != nil {
		return nil, err
	}

	if err := s.store.SavePolicy(ctx, policy); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "policy store save failed", err)
	}
	if s.metrics != nil {
		s.metrics.PoliciesCreated.Inc()
	}
	return policy, nil
}

func (s *Service) retirePolicy(ctx context.Context, policy *RetentionPolicy, now time.Time) error {
	if _, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindPolicyRetired,
		Actor:  s.actor(ctx),
		Target: policy.ID.String(),
		Action: "retired retention policy (superseded)",
	}); err != nil {
		return err
	}
	policy.Active = false
	policy.RetiredAt = &now
	if err := s.store.UpdatePolicy(ctx, policy); err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "policy store update failed", err)
	}
	if s.metrics != nil {
		s.metrics.PoliciesRetired.Inc()
	}
	return nil
}

// CreateSchedule binds a data reference to a policy. The due-date is the
// creation time plus the policy window; an indefinite policy produces no
// due-date.
func (s *Service) CreateSchedule(ctx context.Context, dataRef string, policyID id.PolicyID) (*RetentionSchedule, error) {
	if dataRef == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "data reference is required")
	}
	policy, err := s.store.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "retention policy not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "policy store read failed", err)
	}
	if !policy.Active {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "cannot schedule against a retired policy")
	}
	now := requestcontext.Now(ctx)

	schedule := &RetentionSchedule{
		ID:        id.NewScheduleID(),
		TenantID:  policy.TenantID,
		DataRef:   dataRef,
		PolicyID:  policy.ID,
		Status:    ScheduleActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if policy.Window != nil {
		due := now.Add(*policy.Window)
		schedule.DueAt = &due
	}

	if _, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindScheduleCreated,
		Actor:  s.actor(ctx),
		Target: schedule.ID.String(),
		Action: "created retention schedule",
		Metadata: map[string]string{
			"policy_id": policy.ID.String(),
		},
	}); err != nil {
		return nil, err
	}

	if err := s.store.SaveSchedule(ctx, schedule); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "schedule store save failed", err)
	}
	return schedule, nil
}

// ApplyLegalHold suppresses deletion of the schedule until the given
// instant, regardless of its due-date.
func (s *Service) ApplyLegalHold(ctx context.Context, scheduleID id.ScheduleID, until time.Time) (*RetentionSchedule, error) {
	now := requestcontext.Now(ctx)
	if !until.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "legal hold must end in the future")
	}

	schedule, err := s.getActiveSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	if _, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindLegalHoldApplied,
		Actor:  s.actor(ctx),
		Target: schedule.ID.String(),
		Action: "applied legal hold",
		Metadata: map[string]string{
			"hold_until": until.UTC().Format(time.RFC3339),
		},
	}); err != nil {
		return nil, err
	}

	schedule.LegalHoldUntil = &until
	schedule.UpdatedAt = now
	if err := s.store.UpdateSchedule(ctx, schedule); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "schedule store update failed", err)
	}
	if s.metrics != nil {
		s.metrics.LegalHolds.WithLabelValues("applied").Inc()
	}
	return schedule, nil
}

// ReleaseLegalHold clears the hold; the next sweep may delete the schedule
// if its due-date has passed.
func (s *Service) ReleaseLegalHold(ctx context.Context, scheduleID id.ScheduleID) (*RetentionSchedule, error) {
	schedule, err := s.getActiveSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.LegalHoldUntil == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "schedule has no legal hold to release")
	}

	if _, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindLegalHoldReleased,
		Actor:  s.actor(ctx),
		Target: schedule.ID.String(),
		Action: "released legal hold",
	}); err != nil {
		return nil, err
	}

	schedule.LegalHoldUntil = nil
	schedule.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.UpdateSchedule(ctx, schedule); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "schedule store update failed", err)
	}
	if s.metrics != nil {
		s.metrics.LegalHolds.WithLabelValues("released").Inc()
	}
	return schedule, nil
}

// ProcessScheduledDeletions runs one deletion sweep. Overlapping sweeps
// collapse into one via the single-flight guard, and re-running is
// idempotent: schedules already pending-deletion are no longer active.
//
// Deletion is gated on the audit trail. A schedule only transitions (and its
// data is only purged) after its deletion-pending entry is durably recorded;
// a ledger failure aborts the sweep with the partial result.
func (s *Service) ProcessScheduledDeletions(ctx context.Context) (SweepResult, error) {
	result, err, _ := s.sweeps.Do("retention-sweep", func() (any, error) {
		return s.sweep(ctx)
	})
	if err != nil {
		if r, ok := result.(SweepResult); ok {
			return r, err
		}
		return SweepResult{}, err
	}
	return result.(SweepResult), nil
}

func (s *Service) sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)
	if s.metrics != nil {
		s.metrics.SweepsRun.Inc()
		defer func() { s.metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()
	}

	schedules, err := s.store.ListActiveSchedules(ctx)
	if err != nil {
		return SweepResult{}, dErrors.Wrap(dErrors.CodeUnavailable, "schedule store read failed", err)
	}

	var result SweepResult
	for _, schedule := range schedules {
		result.Processed++
		if !schedule.IsDueAt(now) {
			continue
		}
		if schedule.IsUnderHoldAt(now) {
			result.HeldBack++
			s.countOutcome("held")
			continue
		}
		if err := s.deleteSchedule(ctx, schedule, now); err != nil {
			return result, err
		}
		result.Deleted++
		s.countOutcome("deleted")
	}

	if _, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindSweepCompleted,
		Actor:  ledger.Actor{Type: ledger.ActorSystem, Ref: "retention-sweeper"},
		Action: "completed retention sweep",
		Metadata: map[string]string{
			"processed": strconv.Itoa(result.Processed),
			"deleted":   strconv.Itoa(result.Deleted),
			"held_back": strconv.Itoa(result.HeldBack),
		},
	}); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Service) deleteSchedule(ctx context.Context, schedule *RetentionSchedule, now time.Time) error {
	// Audit first: without a durable deletion-pending entry no data moves.
	if _, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindDeletionPending,
		Actor:  ledger.Actor{Type: ledger.ActorSystem, Ref: "retention-sweeper"},
		Target: schedule.ID.String(),
		Action: "marked schedule pending deletion",
	}); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "deletion not recorded, leaving schedule untouched",
				"schedule_id", schedule.ID,
				"error", err,
			)
		}
		return err
	}

	schedule.Status = SchedulePendingDeletion
	schedule.UpdatedAt = now
	if err := s.store.UpdateSchedule(ctx, schedule); err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "schedule store update failed", err)
	}

	if s.purger != nil {
		if err := s.purger.PurgeByReference(ctx, schedule.DataRef); err != nil {
			return dErrors.Wrap(dErrors.CodeUnavailable, "pattern purge failed", err)
		}
	}
	return nil
}

// GetUpcomingDeletions lists active schedules coming due within the given
// number of days, soonest first. Past-due schedules waiting on the next
// sweep are included.
func (s *Service) GetUpcomingDeletions(ctx context.Context, withinDays int) ([]*RetentionSchedule, error) {
	if withinDays <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "withinDays must be positive")
	}
	now := requestcontext.Now(ctx)
	horizon := now.Add(time.Duration(withinDays) * 24 * time.Hour)

	schedules, err := s.store.ListDueBetween(ctx, time.Time{}, horizon)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "schedule store read failed", err)
	}
	return schedules, nil
}

// GetSchedule returns one schedule by id.
func (s *Service) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*RetentionSchedule, error) {
	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "retention schedule not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "schedule store read failed", err)
	}
	return schedule, nil
}

func (s *Service) getActiveSchedule(ctx context.Context, scheduleID id.ScheduleID) (*RetentionSchedule, error) {
	schedule, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status != ScheduleActive {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "schedule is no longer active")
	}
	return schedule, nil
}

func (s *Service) actor(ctx context.Context) ledger.Actor {
	if ref := requestcontext.Actor(ctx); ref != "" {
		return ledger.Actor{Type: ledger.ActorOperator, Ref: ref}
	}
	return ledger.Actor{Type: ledger.ActorSystem, Ref: "retention-service"}
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.SweepOutcomes.WithLabelValues(outcome).Inc()
	}
}
