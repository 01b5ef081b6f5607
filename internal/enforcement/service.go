package enforcement

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"custos/internal/consent"
	"custos/internal/enforcement/metrics"
	"custos/internal/tenantgate"
	"custos/internal/tenantgate/models"
	"custos/internal/tenantgate/registry"
	id "custos/pkg/domain"
)

// Classifier resolves the deployment class for an identity.
type Classifier interface {
	Classify(ctx context.Context, email string) tenantgate.Classification
}

// AccountLoader fetches provisioned accounts.
type AccountLoader interface {
	GetAccount(ctx context.Context, accountID id.AccountID) (models.Account, error)
}

// ConsentChecker answers whether a subject consents to a scope.
type ConsentChecker interface {
	CheckStatus(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) consent.StatusResult
}

// Service is the set of caller-facing enforcement checkpoints: signup,
// checkout, and the generic API validation the transport layer mounts as
// middleware. Every ambiguity resolves to deny.
type Service struct {
	classifier Classifier
	accounts   AccountLoader
	consents   ConsentChecker
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

func NewService(classifier Classifier, accounts AccountLoader, consents ConsentChecker, opts ...Option) *Service {
	svc := &Service{classifier: classifier, accounts: accounts, consents: consents}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CheckSignup gates account creation. A restricted-domain identity may only
// sign up institutionally, and the denial reason carries the registry's
// enforcement guidance so the caller can route the user accordingly.
func (s *Service) CheckSignup(ctx context.Context, email string, requestedClass models.DeploymentClass) Decision {
	decision := s.checkSignup(ctx, email, requestedClass)
	s.observe(ctx, "signup", decision)
	return decision
}

func (s *Service) checkSignup(ctx context.Context, email string, requestedClass models.DeploymentClass) Decision {
	if !requestedClass.IsValid() {
		return denyClosed("unrecognized deployment class")
	}

	classification := s.classifier.Classify(ctx, email)
	if requestedClass == models.ClassInstitutional {
		return allow()
	}

	if classification.Class == models.ClassInstitutional {
		if classification.Match == nil {
			// Unclassifiable identity: the classifier failed closed and
			// so do we.
			return denyClosed("identity could not be classified")
		}
		return deny(signupDenialReason(classification.Match))
	}
	return allow()
}

func signupDenialReason(match *registry.RestrictedDomain) string {
	switch match.Enforcement {
	case registry.EnforcementRedirectSSO:
		return "restricted domain: sign in through your organization's SSO"
	case registry.EnforcementContactSales:
		return "restricted domain: contact sales for an institutional deployment"
	default:
		return "restricted domain: individual signup is blocked"
	}
}

// CheckCheckout gates purchase: the product's deployment class must match
// the account's. Unknown classes on either side deny.
func (s *Service) CheckCheckout(ctx context.Context, account models.Account, productClass models.DeploymentClass) Decision {
	decision := s.checkCheckout(account, productClass)
	s.observe(ctx, "checkout", decision)
	return decision
}

func (s *Service) checkCheckout(account models.Account, productClass models.DeploymentClass) Decision {
	if account == nil {
		return denyClosed("no account presented")
	}
	if !productClass.IsValid() {
		return denyClosed("unrecognized product class")
	}
	if account.Class() != productClass {
		return deny("product requires a " + string(productClass) + " deployment, account is " + string(account.Class()))
	}
	return allow()
}

// ValidateAPIRequest is the generic checkpoint guarding any operation. The
// evidence it needs - account class, consent status - is gathered
// concurrently; if any piece cannot be fetched the request is denied
// fail-closed rather than waved through.
func (s *Service) ValidateAPIRequest(ctx context.Context, req APIRequest) Decision {
	decision := s.validate(ctx, req)
	s.observe(ctx, "api", decision)
	return decision
}

func (s *Service) validate(ctx context.Context, req APIRequest) Decision {
	var (
		account models.Account
		status  consent.StatusResult
	)

	g, gctx := errgroup.WithContext(ctx)
	if !req.AccountID.IsNil() {
		g.Go(func() error {
			var err error
			account, err = s.accounts.GetAccount(gctx, req.AccountID)
			return err
		})
	}
	if req.RequiredScope != "" {
		g.Go(func() error {
			status = s.consents.CheckStatus(gctx, req.Subject, req.RequiredScope)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "enforcement evidence unavailable, denying",
				"operation", req.Operation,
				"error", err,
			)
		}
		return denyClosed("required evidence unavailable")
	}

	if req.RequiredClass != "" {
		if !req.RequiredClass.IsValid() {
			return denyClosed("unrecognized deployment class")
		}
		if account == nil {
			return denyClosed("operation requires an account")
		}
		if account.Class() != req.RequiredClass {
			return deny("operation requires a " + string(req.RequiredClass) + " deployment")
		}
	}

	if req.RequiredScope != "" {
		if req.Subject.IsNil() {
			return denyClosed("operation requires an authenticated subject")
		}
		if !status.HasConsent {
			if status.IsExpired {
				return deny("consent for " + string(req.RequiredScope) + " has expired")
			}
			return deny("no consent granted for " + string(req.RequiredScope))
		}
	}
	return allow()
}

func (s *Service) observe(ctx context.Context, checkpoint string, decision Decision) {
	if s.metrics != nil {
		s.metrics.IncrementDecision(checkpoint, decision.Allowed)
	}
	if s.logger != nil && !decision.Allowed {
		s.logger.InfoContext(ctx, "enforcement denial",
			"checkpoint", checkpoint,
			"reason", decision.Reason,
			"fail_closed", decision.FailClosed,
		)
	}
}
