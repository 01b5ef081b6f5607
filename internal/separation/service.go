package separation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"custos/internal/ledger"
	"custos/internal/separation/metrics"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/sentinel"
	"custos/pkg/requestcontext"
)

// Recorder is the slice of the ledger purges write through.
type Recorder interface {
	Append(ctx context.Context, p ledger.AppendParams) (ledger.AuditEntry, error)
}

// Service keeps identity-bearing and de-identified data apart. The two
// stores share nothing but the opaque reference, and only this service
// holds both ends of the join.
type Service struct {
	identities IdentityStore
	patterns   PatternStore
	recorder   Recorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(identities IdentityStore, patterns PatternStore, recorder Recorder, opts ...Option) *Service {
	svc := &Service{identities: identities, patterns: patterns, recorder: recorder}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type RegisterIdentityParams struct {
	TenantID    id.TenantID
	DisplayName string
	Email       string
}

// RegisterIdentity stores a new identity record under a freshly minted
// opaque reference.
func (s *Service) RegisterIdentity(ctx context.Context, params RegisterIdentityParams) (*IdentityRecord, error) {
	if params.TenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant is required")
	}
	if params.DisplayName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "display name is required")
	}

	record := &IdentityRecord{
		ID:          id.NewIdentityID(),
		TenantID:    params.TenantID,
		DisplayName: params.DisplayName,
		Email:       params.Email,
		OpaqueRef:   NewOpaqueReference(),
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.identities.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "identity store save failed", err)
	}
	return record, nil
}

// GetIdentity returns one identity record by id.
func (s *Service) GetIdentity(ctx context.Context, identityID id.IdentityID) (*IdentityRecord, error) {
	record, err := s.identities.Get(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "identity store read failed", err)
	}
	return record, nil
}

// RecordPattern stores one de-identified observation under the reference.
func (s *Service) RecordPattern(ctx context.Context, opaqueRef, kind string, attributes map[string]string) (*PatternRecord, error) {
	if opaqueRef == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "opaque reference is required")
	}
	if kind == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "pattern kind is required")
	}

	record := &PatternRecord{
		ID:         uuid.New(),
		OpaqueRef:  opaqueRef,
		Kind:       kind,
		Attributes: attributes,
		RecordedAt: requestcontext.Now(ctx),
	}
	if err := s.patterns.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "pattern store save failed", err)
	}
	return record, nil
}

// ListPatterns returns the de-identified records under a reference.
func (s *Service) ListPatterns(ctx context.Context, opaqueRef string) ([]*PatternRecord, error) {
	records, err := s.patterns.ListByReference(ctx, opaqueRef)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "pattern store read failed", err)
	}
	return records, nil
}

// PurgeIdentity removes the identity record and every pattern record under
// its opaque reference. The audit entry is written first; then patterns,
// then the identity. The result reports each step, so a caller can see
// exactly where a partial purge stopped.
func (s *Service) PurgeIdentity(ctx context.Context, identityID id.IdentityID) (PurgeResult, error) {
	var result PurgeResult

	identity, err := s.identities.Get(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return result, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return result, dErrors.Wrap(dErrors.CodeUnavailable, "identity store read failed", err)
	}

	if err := s.recordPurge(ctx, identity); err != nil {
		result.Steps = append(result.Steps, PurgeStep{Name: "audit", Error: err.Error()})
		return result, err
	}
	result.Steps = append(result.Steps, PurgeStep{Name: "audit", Completed: true})

	purged, err := s.patterns.DeleteByReference(ctx, identity.OpaqueRef)
	result.PatternsPurged = purged
	if err != nil {
		result.Steps = append(result.Steps, PurgeStep{Name: "patterns", Error: err.Error()})
		return result, dErrors.Wrap(dErrors.CodeUnavailable, "pattern purge failed", err)
	}
	result.Steps = append(result.Steps, PurgeStep{Name: "patterns", Completed: true})

	if err := s.identities.Delete(ctx, identityID); err != nil {
		result.Steps = append(result.Steps, PurgeStep{Name: "identity", Error: err.Error()})
		return result, dErrors.Wrap(dErrors.CodeUnavailable, "identity delete failed", err)
	}
	result.IdentityDeleted = true
	result.Steps = append(result.Steps, PurgeStep{Name: "identity", Completed: true})

	if s.metrics != nil {
		s.metrics.IdentitiesPurged.Inc()
		s.metrics.PatternsPurged.Add(float64(purged))
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "identity purged",
			"identity_id", identityID,
			"patterns_purged", purged,
		)
	}
	return result, nil
}

// PurgeByReference removes everything reachable from an opaque reference:
// all pattern records, and the owning identity record if one still exists.
// The retention sweep calls this with a schedule's data reference.
func (s *Service) PurgeByReference(ctx context.Context, opaqueRef string) error {
	if opaqueRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "opaque reference is required")
	}

	identity, err := s.identities.FindByReference(ctx, opaqueRef)
	switch {
	case err == nil:
		_, err := s.PurgeIdentity(ctx, identity.ID)
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		// Orphaned patterns: the identity went first, finish the job.
	default:
		return dErrors.Wrap(dErrors.CodeUnavailable, "identity store read failed", err)
	}

	purged, err := s.patterns.DeleteByReference(ctx, opaqueRef)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "pattern purge failed", err)
	}
	if s.metrics != nil {
		s.metrics.PatternsPurged.Add(float64(purged))
	}
	return nil
}

func (s *Service) recordPurge(ctx context.Context, identity *IdentityRecord) error {
	actor := ledger.Actor{Type: ledger.ActorSystem, Ref: "separation-service"}
	if ref := requestcontext.Actor(ctx); ref != "" {
		actor = ledger.Actor{Type: ledger.ActorOperator, Ref: ref}
	}

	patterns, err := s.patterns.ListByReference(ctx, identity.OpaqueRef)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "pattern store read failed", err)
	}

	_, err = s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindIdentityPurged,
		Actor:  actor,
		Target: identity.ID.String(),
		Action: "purged identity and linked pattern records",
		Metadata: map[string]string{
			"pattern_count": strconv.Itoa(len(patterns)),
		},
	})
	return err
}
