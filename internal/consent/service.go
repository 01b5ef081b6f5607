package consent

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"custos/internal/consent/metrics"
	"custos/internal/ledger"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/sentinel"
	"custos/pkg/requestcontext"
)

// Recorder is the slice of the ledger consent transitions write through.
type Recorder interface {
	Append(ctx context.Context, p ledger.AppendParams) (ledger.AuditEntry, error)
}

// StatusCache is the optional best-effort cache in front of CheckStatus.
// Implementations swallow their own infrastructure errors; a broken cache
// must look exactly like a cold one. The ttl passed to Set is already
// capped at the grant's remaining lifetime and is always positive.
type StatusCache interface {
	Get(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) (StatusResult, bool)
	Set(ctx context.Context, subject id.SubjectID, scope id.ConsentScope, result StatusResult, ttl time.Duration)
	Invalidate(ctx context.Context, subject id.SubjectID, scope id.ConsentScope)
}

// Service owns the consent state machine. Every transition appends one
// ledger entry carrying the scope and consent id before the store is
// touched, so the audit trail can never under-report.
type Service struct {
	store    Store
	recorder Recorder
	cache    StatusCache
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

func WithCache(cache StatusCache) Option {
	return func(s *Service) { s.cache = cache }
}

func NewService(store Store, recorder Recorder, opts ...Option) *Service {
	svc := &Service{store: store, recorder: recorder}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Grant records a new consent grant. If a prior grant is active for the
// same (subject, scope) it transitions to modified first - history is
// preserved, and the one-active-grant invariant holds throughout.
func (s *Service) Grant(ctx context.Context, subject id.SubjectID, scope id.ConsentScope, opts GrantOptions) (*Record, error) {
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	if !scope.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid scope")
	}
	now := requestcontext.Now(ctx)

	prior, err := s.store.FindGranted(ctx, subject, scope)
	switch {
	case err == nil:
		if err := s.applyTransition(ctx, prior, StatusModified, ledger.KindConsentModified, "superseded by new grant"); err != nil {
			return nil, err
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// First grant for this (subject, scope).
	default:
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "consent store read failed", err)
	}

	record := &Record{
		ID:        id.NewConsentID(),
		Subject:   subject,
		Scope:     scope,
		Status:    StatusGranted,
		GrantedAt: now,
		UpdatedAt: now,
		Condition: opts.Condition,
	}
	if opts.TTL > 0 {
		expires := now.Add(opts.TTL)
		record.ExpiresAt = &expires
	}

	entry, err := s.record(ctx, ledger.KindConsentGranted, record, "granted consent")
	if err != nil {
		return nil, err
	}
	record.AuditSequence = entry.Sequence

	if err := s.store.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "consent store save failed", err)
	}
	s.invalidate(ctx, subject, scope)
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(StatusGranted))
	}
	return record, nil
}

// Modify updates the condition/expiry of the active grant by superseding
// it: the current record transitions to modified and a fresh granted record
// takes its place.
func (s *Service) Modify(ctx context.Context, subject id.SubjectID, scope id.ConsentScope, opts GrantOptions) (*Record, error) {
	if _, err := s.store.FindGranted(ctx, subject, scope); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active grant to modify")
		}
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "consent store read failed", err)
	}
	return s.Grant(ctx, subject, scope, opts)
}

// Revoke transitions the active grant for (subject, scope) to revoked.
func (s *Service) Revoke(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) error {
	record, err := s.store.FindGranted(ctx, subject, scope)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no active grant to revoke")
		}
		return dErrors.Wrap(dErrors.CodeUnavailable, "consent store read failed", err)
	}
	if err := s.applyTransition(ctx, record, StatusRevoked, ledger.KindConsentRevoked, "revoked consent"); err != nil {
		return err
	}
	s.invalidate(ctx, subject, scope)
	return nil
}

// RevokeAll revokes every currently granted scope for the subject and
// returns how many transitions happened. Records already revoked or
// expired are untouched.
func (s *Service) RevokeAll(ctx context.Context, subject id.SubjectID) (int, error) {
	records, err := s.store.ListBySubject(ctx, subject)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "consent store read failed", err)
	}

	revoked := 0
	for _, record := range records {
		if record.Status != StatusGranted {
			continue
		}
		if err := s.applyTransition(ctx, record, StatusRevoked, ledger.KindConsentRevoked, "revoked consent (revoke-all)"); err != nil {
			return revoked, err
		}
		s.invalidate(ctx, record.Subject, record.Scope)
		revoked++
	}
	return revoked, nil
}

// CheckStatus answers whether the subject currently consents to the scope.
// Expiry is computed lazily here; the stored status transitions later in
// the batch sweep.
//
// Failure posture: a broken cache looks cold, and a broken store degrades
// to "not granted" rather than an error - consumers of consent checks must
// fail closed, not crash.
func (s *Service) CheckStatus(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) StatusResult {
	if s.cache != nil {
		if result, ok := s.cache.Get(ctx, subject, scope); ok {
			return result
		}
	}

	record, err := s.store.FindGranted(ctx, subject, scope)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "consent store unavailable, treating as not granted",
					"scope", scope,
					"error", err,
				)
			}
			if s.metrics != nil {
				s.metrics.IncrementStatusCheck("degraded")
			}
		} else if s.metrics != nil {
			s.metrics.IncrementStatusCheck("not_granted")
		}
		return StatusResult{HasConsent: false}
	}

	now := requestcontext.Now(ctx)
	result := StatusResult{
		HasConsent: record.IsActiveAt(now),
		IsExpired:  record.IsExpiredAt(now),
	}
	if s.metrics != nil {
		switch {
		case result.HasConsent:
			s.metrics.IncrementStatusCheck("granted")
		case result.IsExpired:
			s.metrics.IncrementStatusCheck("expired")
		default:
			s.metrics.IncrementStatusCheck("not_granted")
		}
	}
	if s.cache != nil && result.HasConsent {
		// A cached positive answer must not outlive the grant itself,
		// or expiry would go unnoticed until the cache entry lapses.
		ttl := statusCacheTTL
		if record.ExpiresAt != nil {
			if remaining := record.ExpiresAt.Sub(now); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			s.cache.Set(ctx, subject, scope, result, ttl)
		}
	}
	return result
}

// ProcessExpired sweeps granted records whose expiry has passed and
// transitions them to expired. Overlapping sweeps collapse into one via
// the single-flight guard; re-running is idempotent because transitioned
// records no longer match the sweep query.
func (s *Service) ProcessExpired(ctx context.Context) (int, error) {
	count, err, _ := s.sweeps.Do("consent-expiry", func() (any, error) {
		return s.processExpired(ctx)
	})
	if err != nil {
		return 0, err
	}
	return count.(int), nil
}

func (s *Service) processExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	expired, err := s.store.ListGrantedExpiredBefore(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "consent store read failed", err)
	}

	processed := 0
	for _, record := range expired {
		if err := s.applyTransition(ctx, record, StatusExpired, ledger.KindConsentExpired, "consent expired"); err != nil {
			return processed, err
		}
		s.invalidate(ctx, record.Subject, record.Scope)
		processed++
	}

	_, err = s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindConsentSweepDone,
		Actor:  ledger.Actor{Type: ledger.ActorSystem, Ref: "consent-sweeper"},
		Action: "completed consent expiry sweep",
		Metadata: map[string]string{
			"expired": strconv.Itoa(processed),
		},
	})
	if err != nil {
		return processed, err
	}
	return processed, nil
}

// applyTransition appends the audit entry, then persists the state change.
// Audit failure aborts before the store is touched.
func (s *Service) applyTransition(ctx context.Context, record *Record, next Status, kind ledger.EntryKind, action string) error {
	now := requestcontext.Now(ctx)

	entry, err := s.record(ctx, kind, record, action)
	if err != nil {
		return err
	}
	if err := record.transition(next, now, entry.Sequence); err != nil {
		return err
	}
	if err := s.store.Update(ctx, record); err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "consent store update failed", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(next))
	}
	return nil
}

func (s *Service) record(ctx context.Context, kind ledger.EntryKind, record *Record, action string) (ledger.AuditEntry, error) {
	entry, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   kind,
		Actor:  ledger.Actor{Type: ledger.ActorSubject, Ref: record.Subject.String()},
		Target: record.ID.String(),
		Action: action,
		Scope:  string(record.Scope),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "consent transition not recorded, aborting",
				"consent_id", record.ID,
				"scope", record.Scope,
				"error", err,
			)
		}
		return ledger.AuditEntry{}, err
	}
	return entry, nil
}

func (s *Service) invalidate(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, subject, scope)
	}
}
