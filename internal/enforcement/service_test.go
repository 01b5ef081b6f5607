package enforcement

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custos/internal/consent"
	"custos/internal/ledger"
	"custos/internal/tenantgate"
	"custos/internal/tenantgate/models"
	"custos/internal/tenantgate/registry"
	id "custos/pkg/domain"
	"custos/pkg/requestcontext"
)

type EnforcementSuite struct {
	suite.Suite
	gate     *tenantgate.Service
	consents *consent.Service
	service  *Service
	ctx      context.Context
	now      time.Time
	tenantID id.TenantID
}

func (s *EnforcementSuite) SetupTest() {
	recorder := ledger.NewService(ledger.NewInMemoryStore())
	s.gate = tenantgate.NewService(
		tenantgate.NewClassifier(registry.NewLoader(nil, nil)),
		tenantgate.NewInMemoryAccountStore(),
		recorder,
	)
	s.consents = consent.NewService(consent.NewInMemoryStore(), recorder)
	s.service = NewService(s.gate, s.gate, s.consents)
	s.now = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.tenantID = id.NewTenantID()
}

func TestEnforcementSuite(t *testing.T) {
	suite.Run(t, new(EnforcementSuite))
}

func (s *EnforcementSuite) provisionInstitutional() models.Account {
	result, err := s.gate.ProvisionInstitutional(s.ctx, tenantgate.ProvisionInstitutionalParams{
		TenantID:   s.tenantID,
		SeatCount:  40,
		Units:      []string{"engineering"},
		ContractID: "CT-2026-100",
	})
	s.Require().NoError(err)
	return result.Account
}

func (s *EnforcementSuite) provisionRelational() models.Account {
	result, err := s.gate.ProvisionRelational(s.ctx, tenantgate.ProvisionRelationalParams{
		TenantID:              s.tenantID,
		Email:                 "alex@example.com",
		BundleSize:            5,
		Members:               []string{"alex"},
		ConsentAcknowledgedAt: s.now.Add(-time.Minute),
	})
	s.Require().NoError(err)
	return result.Account
}

func (s *EnforcementSuite) TestCheckSignup() {
	s.Run("ordinary email may sign up relationally", func() {
		decision := s.service.CheckSignup(s.ctx, "alex@example.com", models.ClassRelational)
		s.True(decision.Allowed)
	})

	s.Run("restricted domain denies relational with routing guidance", func() {
		cases := map[string]string{
			"nurse@nhs.uk":      "SSO",
			"officer@police.uk": "blocked",
			"clerk@gov.uk":      "sales",
		}
		for email, hint := range cases {
			decision := s.service.CheckSignup(s.ctx, email, models.ClassRelational)
			s.False(decision.Allowed, email)
			s.False(decision.FailClosed, email)
			s.Contains(decision.Reason, hint, email)
		}
	})

	s.Run("parent-domain match is enforced", func() {
		decision := s.service.CheckSignup(s.ctx, "nurse@mail.nhs.uk", models.ClassRelational)
		s.False(decision.Allowed)
	})

	s.Run("institutional signup is always compatible", func() {
		decision := s.service.CheckSignup(s.ctx, "nurse@nhs.uk", models.ClassInstitutional)
		s.True(decision.Allowed)
	})

	s.Run("unclassifiable email fails closed", func() {
		decision := s.service.CheckSignup(s.ctx, "not-an-email", models.ClassRelational)
		s.False(decision.Allowed)
		s.True(decision.FailClosed)
	})

	s.Run("unknown deployment class fails closed", func() {
		decision := s.service.CheckSignup(s.ctx, "alex@example.com", models.DeploymentClass("trial"))
		s.False(decision.Allowed)
		s.True(decision.FailClosed)
	})
}

func (s *EnforcementSuite) TestCheckCheckout() {
	institutional := s.provisionInstitutional()
	relational := s.provisionRelational()

	s.Run("matching classes are compatible", func() {
		s.True(s.service.CheckCheckout(s.ctx, institutional, models.ClassInstitutional).Allowed)
		s.True(s.service.CheckCheckout(s.ctx, relational, models.ClassRelational).Allowed)
	})

	s.Run("mismatched classes deny with a reason", func() {
		decision := s.service.CheckCheckout(s.ctx, relational, models.ClassInstitutional)
		s.False(decision.Allowed)
		s.Contains(decision.Reason, "institutional")
	})

	s.Run("missing account or unknown product class fails closed", func() {
		s.True(s.service.CheckCheckout(s.ctx, nil, models.ClassRelational).FailClosed)
		s.True(s.service.CheckCheckout(s.ctx, relational, models.DeploymentClass("trial")).FailClosed)
	})
}

func (s *EnforcementSuite) TestValidateAPIRequest() {
	subject := id.NewSubjectID()
	account := s.provisionInstitutional()

	s.Run("no requirements means allowed", func() {
		decision := s.service.ValidateAPIRequest(s.ctx, APIRequest{Operation: "health"})
		s.True(decision.Allowed)
	})

	s.Run("consent requirement denies until granted", func() {
		req := APIRequest{
			Operation:     "log_capacity",
			Subject:       subject,
			RequiredScope: id.ScopeCapacityLogging,
		}
		decision := s.service.ValidateAPIRequest(s.ctx, req)
		s.False(decision.Allowed)

		_, err := s.consents.Grant(s.ctx, subject, id.ScopeCapacityLogging, consent.GrantOptions{})
		s.Require().NoError(err)
		s.True(s.service.ValidateAPIRequest(s.ctx, req).Allowed)
	})

	s.Run("expired consent denies with the expiry named", func() {
		expiring := id.NewSubjectID()
		_, err := s.consents.Grant(s.ctx, expiring, id.ScopePatternAnalysis, consent.GrantOptions{TTL: time.Hour})
		s.Require().NoError(err)

		later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
		decision := s.service.ValidateAPIRequest(later, APIRequest{
			Subject:       expiring,
			RequiredScope: id.ScopePatternAnalysis,
		})
		s.False(decision.Allowed)
		s.Contains(decision.Reason, "expired")
	})

	s.Run("class requirement checks the account's class", func() {
		allowed := s.service.ValidateAPIRequest(s.ctx, APIRequest{
			AccountID:     account.AccountID(),
			RequiredClass: models.ClassInstitutional,
		})
		s.True(allowed.Allowed)

		denied := s.service.ValidateAPIRequest(s.ctx, APIRequest{
			AccountID:     account.AccountID(),
			RequiredClass: models.ClassRelational,
		})
		s.False(denied.Allowed)
		s.False(denied.FailClosed)
	})

	s.Run("unfetchable evidence fails closed", func() {
		decision := s.service.ValidateAPIRequest(s.ctx, APIRequest{
			AccountID:     id.NewAccountID(),
			RequiredClass: models.ClassInstitutional,
		})
		s.False(decision.Allowed)
		s.True(decision.FailClosed)
	})

	s.Run("class requirement without an account fails closed", func() {
		decision := s.service.ValidateAPIRequest(s.ctx, APIRequest{
			RequiredClass: models.ClassInstitutional,
		})
		s.False(decision.Allowed)
		s.True(decision.FailClosed)
	})
}

func (s *EnforcementSuite) TestMiddleware() {
	subject := id.NewSubjectID()
	_, err := s.consents.Grant(s.ctx, subject, id.ScopeCapacityLogging, consent.GrantOptions{})
	s.Require().NoError(err)

	var reached bool
	handler := s.service.Middleware(Requirement{
		Operation:     "log_capacity",
		RequiredScope: id.ScopeCapacityLogging,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))

	s.Run("consenting subject passes through", func() {
		reached = false
		ctx := requestcontext.WithSubject(s.ctx, subject.String())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/signals", nil).WithContext(ctx)

		handler.ServeHTTP(rec, req)
		s.True(reached)
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("non-consenting subject gets a structured 403", func() {
		reached = false
		ctx := requestcontext.WithSubject(s.ctx, id.NewSubjectID().String())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/signals", nil).WithContext(ctx)

		handler.ServeHTTP(rec, req)
		s.False(reached)
		s.Equal(http.StatusForbidden, rec.Code)
		s.Contains(rec.Body.String(), "consent")
	})
}
