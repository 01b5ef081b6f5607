package tenantgate

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"custos/internal/ledger"
	"custos/internal/tenantgate/metrics"
	"custos/internal/tenantgate/models"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

// Recorder is the slice of the ledger the gate writes through.
type Recorder interface {
	Append(ctx context.Context, p ledger.AppendParams) (ledger.AuditEntry, error)
}

// Service enforces the structural separation between the two deployment
// classes: classification, provisioning, and the individual-data guard.
type Service struct {
	classifier *Classifier
	accounts   AccountStore
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

func NewService(classifier *Classifier, accounts AccountStore, recorder Recorder, opts ...Option) *Service {
	svc := &Service{classifier: classifier, accounts: accounts, recorder: recorder}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Classify resolves the deployment class for an email address.
func (s *Service) Classify(ctx context.Context, email string) Classification {
	c := s.classifier.Classify(ctx, email)
	if s.metrics != nil {
		s.metrics.IncrementClassified(string(c.Class))
	}
	return c
}

// ProvisionRelationalParams carries a relational provisioning request.
type ProvisionRelationalParams struct {
	TenantID              id.TenantID
	Email                 string
	BundleSize            int
	Members               []string
	ConsentAcknowledgedAt time.Time // zero means not acknowledged
}

// ProvisionResult is the structured outcome of a provisioning attempt.
// A policy denial (restricted domain, wrong class) comes back as
// Allowed=false with a reason; only input and infrastructure faults are
// errors.
type ProvisionResult struct {
	Allowed bool
	Reason  string
	Account models.Account
}

// ProvisionRelational provisions the consumer shape. A restricted-domain
// identity can never be provisioned relationally, no matter what the caller
// requested.
func (s *Service) ProvisionRelational(ctx context.Context, p ProvisionRelationalParams) (ProvisionResult, error) {
	now := requestcontext.Now(ctx)

	classification := s.Classify(ctx, p.Email)
	if classification.Class != models.ClassRelational {
		reason := "restricted domain requires institutional deployment"
		if classification.Match != nil {
			reason += ": " + classification.Match.Organization
		}
		if err := s.recordDenial(ctx, models.ClassRelational, reason); err != nil {
			return ProvisionResult{}, err
		}
		if s.metrics != nil {
			s.metrics.IncrementProvision(string(models.ClassRelational), "denied")
		}
		return ProvisionResult{Allowed: false, Reason: reason}, nil
	}

	if p.ConsentAcknowledgedAt.IsZero() {
		return ProvisionResult{}, dErrors.New(dErrors.CodeInvalidInput, "relational provisioning requires explicit consent acknowledgment")
	}

	account, err := models.NewRelationalAccount(
		p.TenantID, p.BundleSize, p.Members,
		p.ConsentAcknowledgedAt, now,
	)
	if err != nil {
		return ProvisionResult{}, err
	}

	if err := s.saveAndRecord(ctx, account, map[string]string{
		"bundle_size": strconv.Itoa(account.BundleSize),
		"members":     strconv.Itoa(len(account.Members)),
	}); err != nil {
		return ProvisionResult{}, err
	}
	if s.metrics != nil {
		s.metrics.IncrementProvision(string(models.ClassRelational), "allowed")
	}
	return ProvisionResult{Allowed: true, Account: account}, nil
}

// ProvisionInstitutionalParams carries an institutional provisioning request.
type ProvisionInstitutionalParams struct {
	TenantID   id.TenantID
	SeatCount  int
	Units      []string
	ContractID string
}

// ProvisionInstitutional provisions the aggregate-only shape.
func (s *Service) ProvisionInstitutional(ctx context.Context, p ProvisionInstitutionalParams) (ProvisionResult, error) {
	now := requestcontext.Now(ctx)

	account, err := models.NewInstitutionalAccount(p.TenantID, p.SeatCount, p.Units, p.ContractID, now)
	if err != nil {
		return ProvisionResult{}, err
	}

	if err := s.saveAndRecord(ctx, account, map[string]string{
		"seat_count": strconv.Itoa(account.SeatCount),
		"units":      strconv.Itoa(len(account.Units)),
		"contract":   account.ContractID,
	}); err != nil {
		return ProvisionResult{}, err
	}
	if s.metrics != nil {
		s.metrics.IncrementProvision(string(models.ClassInstitutional), "allowed")
	}
	return ProvisionResult{Allowed: true, Account: account}, nil
}

// GetAccount loads a provisioned account.
func (s *Service) GetAccount(ctx context.Context, accountID id.AccountID) (models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeNotFound, "account not found", err)
	}
	return account, nil
}

func (s *Service) saveAndRecord(ctx context.Context, account models.Account, metadata map[string]string) error {
	if err := s.accounts.Save(ctx, account); err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "account store save failed", err)
	}
	metadata["class"] = string(account.Class())
	_, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:     ledger.KindAccountProvisioned,
		Actor:    ledger.Actor{Type: ledger.ActorOperator, Ref: requestcontext.Actor(ctx)},
		Target:   account.AccountID().String(),
		Action:   "provisioned " + string(account.Class()) + " account",
		Metadata: metadata,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to record provisioning in ledger",
				"account_id", account.AccountID(),
				"error", err,
			)
		}
		return err
	}
	return nil
}

func (s *Service) recordDenial(ctx context.Context, requested models.DeploymentClass, reason string) error {
	_, err := s.recorder.Append(ctx, ledger.AppendParams{
		Kind:   ledger.KindProvisionDenied,
		Actor:  ledger.Actor{Type: ledger.ActorOperator, Ref: requestcontext.Actor(ctx)},
		Action: "denied " + string(requested) + " provisioning",
		Metadata: map[string]string{
			"requested_class": string(requested),
			"reason":          reason,
		},
	})
	return err
}
