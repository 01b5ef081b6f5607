package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "custos/pkg/domain-errors"
	"custos/internal/ledger/metrics"
	"custos/pkg/requestcontext"
)

// Service is the single write path into the audit chain. Sequence assignment
// and chain extension happen under one mutex - the only lock in the core -
// so concurrent writers cannot fork the chain or leave gaps.
type Service struct {
	mu      sync.Mutex
	store   Store
	lastSeq uint64
	lastHash string
	loaded  bool

	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, opts ...Option) *Service {
	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// AppendParams carries everything an entry records besides what the service
// derives itself (sequence, timestamp, hashes).
type AppendParams struct {
	Kind     EntryKind
	Actor    Actor
	Action   string
	Target   string
	Scope    string
	Metadata map[string]string
}

// Append extends the chain by one entry and returns it.
//
// Errors: CodeInvalidInput for incomplete params; store failures are wrapped
// as CodeUnavailable and the chain tail is left untouched.
func (s *Service) Append(ctx context.Context, p AppendParams) (AuditEntry, error) {
	if p.Kind == "" {
		return AuditEntry{}, dErrors.New(dErrors.CodeInvalidInput, "entry kind is required")
	}
	if p.Actor.Type == "" || p.Actor.Ref == "" {
		return AuditEntry{}, dErrors.New(dErrors.CodeInvalidInput, "actor type and ref are required")
	}
	if p.Action == "" {
		return AuditEntry{}, dErrors.New(dErrors.CodeInvalidInput, "action is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadTailLocked(ctx); err != nil {
		return AuditEntry{}, err
	}

	// The timestamp is canonicalized to microseconds before hashing: the
	// durable timestamptz column holds microsecond precision, and a verify
	// pass recomputes hashes from what the store returns.
	entry := AuditEntry{
		Sequence:     s.lastSeq + 1,
		Timestamp:    requestcontext.Now(ctx).UTC().Truncate(time.Microsecond),
		Kind:         p.Kind,
		Actor:        p.Actor,
		Target:       p.Target,
		Action:       p.Action,
		Scope:        p.Scope,
		Metadata:     p.Metadata,
		PreviousHash: s.lastHash,
	}
	entry.EntryHash = computeEntryHash(entry)

	if err := s.store.Append(ctx, entry); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "ledger append failed",
				"kind", entry.Kind,
				"sequence", entry.Sequence,
				"error", err,
			)
		}
		return AuditEntry{}, dErrors.Wrap(dErrors.CodeUnavailable, "ledger store append failed", err)
	}

	s.lastSeq = entry.Sequence
	s.lastHash = entry.EntryHash

	if s.metrics != nil {
		s.metrics.IncrementAppended(string(entry.Kind))
	}
	return entry, nil
}

// loadTailLocked initializes the in-process chain tail from the store once.
// Callers hold s.mu.
func (s *Service) loadTailLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	last, ok, err := s.store.Last(ctx)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "ledger tail load failed", err)
	}
	if ok {
		s.lastSeq = last.Sequence
		s.lastHash = last.EntryHash
	} else {
		s.lastSeq = 0
		s.lastHash = GenesisHash
	}
	s.loaded = true
	return nil
}

// VerifyChainIntegrity walks the whole chain from genesis and reports the
// first broken entry, if any. Failures are reported, never repaired.
func (s *Service) VerifyChainIntegrity(ctx context.Context) (IntegrityReport, error) {
	start := time.Now()
	entries, err := s.store.All(ctx)
	if err != nil {
		return IntegrityReport{}, dErrors.Wrap(dErrors.CodeUnavailable, "ledger read failed", err)
	}

	report := IntegrityReport{Valid: true, Entries: len(entries)}
	prevHash := GenesisHash
	var prevSeq uint64

	for i := range entries {
		e := entries[i]
		broken := e.Sequence != prevSeq+1 ||
			e.PreviousHash != prevHash ||
			computeEntryHash(e) != e.EntryHash
		if broken {
			seq := e.Sequence
			report.Valid = false
			report.BrokenAtSequence = &seq
			break
		}
		prevHash = e.EntryHash
		prevSeq = e.Sequence
	}

	if s.metrics != nil {
		s.metrics.ObserveVerify(start)
		if !report.Valid {
			s.metrics.IncrementIntegrityFailure()
		}
	}
	if !report.Valid && s.logger != nil {
		s.logger.ErrorContext(ctx, "ledger integrity violation detected",
			"broken_at_sequence", *report.BrokenAtSequence,
			"entries", report.Entries,
		)
	}
	return report, nil
}

// List returns entries matching an arbitrary filter combination in
// sequence order.
func (s *Service) List(ctx context.Context, filter Filter) ([]AuditEntry, error) {
	return s.store.List(ctx, filter)
}

// ListByKind returns entries of one kind in sequence order.
func (s *Service) ListByKind(ctx context.Context, kind EntryKind) ([]AuditEntry, error) {
	return s.store.List(ctx, Filter{Kind: kind})
}

// ListByActor returns entries recorded for one actor reference.
func (s *Service) ListByActor(ctx context.Context, actorRef string) ([]AuditEntry, error) {
	return s.store.List(ctx, Filter{ActorRef: actorRef})
}

// ListByTarget returns entries touching one target reference.
func (s *Service) ListByTarget(ctx context.Context, target string) ([]AuditEntry, error) {
	return s.store.List(ctx, Filter{Target: target})
}

// ListByTimeRange returns entries within [from, to].
func (s *Service) ListByTimeRange(ctx context.Context, from, to time.Time) ([]AuditEntry, error) {
	return s.store.List(ctx, Filter{From: from, To: to})
}
