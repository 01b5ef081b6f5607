package aggregate

import (
	"context"
	"log/slog"
	"strconv"

	"custos/internal/aggregate/metrics"
	"custos/internal/ledger"
	"custos/pkg/requestcontext"
)

// Recorder is the slice of the ledger the aggregator needs: denied exports
// are governance-relevant events and must leave a trace.
type Recorder interface {
	Append(ctx context.Context, p ledger.AppendParams) (ledger.AuditEntry, error)
}

// Service wraps the pure aggregation engine with the inclusion delay,
// filter/export re-validation, and audit recording. All reads; the only
// write is to the ledger.
type Service struct {
	recorder Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(recorder Recorder, opts ...Option) *Service {
	svc := &Service{recorder: recorder}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ComputeMetrics applies the inclusion delay and derives the unit's
// aggregate view. Below-floor inputs come back as the suppressed sentinel.
func (s *Service) ComputeMetrics(ctx context.Context, unit string, signals []RawSignal) UnitMetrics {
	now := requestcontext.Now(ctx)
	eligible := ApplyDelay(signals, InclusionDelay, now)
	result := ComputeMetrics(unit, eligible, now)

	if s.metrics != nil {
		s.metrics.IncrementComputed(result.IsSuppressed)
	}
	if result.IsSuppressed && s.logger != nil {
		s.logger.DebugContext(ctx, "unit metrics suppressed below floor",
			"unit", unit,
		)
	}
	return result
}

// ValidateFilteredView re-runs the k-anonymity check against the
// POST-filter count. A view that is safe in aggregate can become unsafe
// once filtered, so this must be called every time a filter changes; the
// pre-filter count is irrelevant.
func (s *Service) ValidateFilteredView(ctx context.Context, all []RawSignal, filter SignalFilter) FilterDecision {
	now := requestcontext.Now(ctx)
	eligible := ApplyDelay(all, InclusionDelay, now)

	count := 0
	for _, sig := range eligible {
		if filter.Matches(sig) {
			count++
		}
	}

	decision := FilterDecision{
		Allowed:        count >= KAnonymityFloor,
		ResultingCount: count,
	}
	if s.metrics != nil && !decision.Allowed {
		s.metrics.IncrementFilterDenied()
	}
	return decision
}

// ValidateExport checks every requested unit against the post-filter floor.
// One blocked unit blocks the whole export; the denial is recorded in the
// ledger so report surfaces cannot quietly probe for small units.
func (s *Service) ValidateExport(ctx context.Context, all []RawSignal, req ExportRequest) (ExportDecision, error) {
	now := requestcontext.Now(ctx)
	eligible := ApplyDelay(all, InclusionDelay, now)

	counts := make(map[string]int, len(req.Units))
	for _, sig := range eligible {
		if req.Filter.Matches(sig) {
			counts[sig.Unit]++
		}
	}

	var blocked []string
	for _, unit := range req.Units {
		if counts[unit] < KAnonymityFloor {
			blocked = append(blocked, unit)
		}
	}

	decision := ExportDecision{Allowed: len(blocked) == 0, BlockedUnits: blocked}
	if decision.Allowed {
		return decision, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementExportDenied()
	}
	_, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindExportDenied,
		Actor:  ledger.Actor{Type: ledger.ActorSystem, Ref: "aggregator"},
		Action: "export blocked below disclosure floor",
		Metadata: map[string]string{
			"requested_units": strconv.Itoa(len(req.Units)),
			"blocked_units":   strconv.Itoa(len(blocked)),
			"requested_by":    requestcontext.Actor(ctx),
		},
	})
	if err != nil {
		// The denial stands either way; surface the audit failure.
		return decision, err
	}
	return decision, nil
}
