package tenantgate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custos/internal/ledger"
	"custos/internal/tenantgate/models"
	"custos/internal/tenantgate/registry"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

type TenantGateServiceSuite struct {
	suite.Suite
	ledgerStore *ledger.InMemoryStore
	service     *Service
	ctx         context.Context
	now         time.Time
	tenantID    id.TenantID
}

func (s *TenantGateServiceSuite) SetupTest() {
	s.ledgerStore = ledger.NewInMemoryStore()
	s.service = NewService(
		NewClassifier(registry.NewLoader(nil, nil)),
		NewInMemoryAccountStore(),
		ledger.NewService(s.ledgerStore),
	)
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.tenantID = id.NewTenantID()
}

func TestTenantGateServiceSuite(t *testing.T) {
	suite.Run(t, new(TenantGateServiceSuite))
}

func (s *TenantGateServiceSuite) TestProvisionRelational() {
	s.Run("provisions a valid bundle and records it", func() {
		result, err := s.service.ProvisionRelational(s.ctx, ProvisionRelationalParams{
			TenantID:              s.tenantID,
			Email:                 "alex@example.com",
			BundleSize:            10,
			Members:               []string{"alex", "sam"},
			ConsentAcknowledgedAt: s.now.Add(-time.Minute),
		})
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Require().NotNil(result.Account)
		s.Equal(models.ClassRelational, result.Account.Class())

		entries, err := s.ledgerStore.List(s.ctx, ledger.Filter{Kind: ledger.KindAccountProvisioned})
		s.Require().NoError(err)
		s.Len(entries, 1)
	})

	s.Run("restricted domain is denied even when relational is requested", func() {
		result, err := s.service.ProvisionRelational(s.ctx, ProvisionRelationalParams{
			TenantID:              s.tenantID,
			Email:                 "nurse@nhs.uk",
			BundleSize:            5,
			Members:               []string{"nurse"},
			ConsentAcknowledgedAt: s.now.Add(-time.Minute),
		})
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Nil(result.Account)
		s.Contains(result.Reason, "institutional")

		entries, err := s.ledgerStore.List(s.ctx, ledger.Filter{Kind: ledger.KindProvisionDenied})
		s.Require().NoError(err)
		s.NotEmpty(entries)
	})

	s.Run("missing consent acknowledgment is an input error", func() {
		_, err := s.service.ProvisionRelational(s.ctx, ProvisionRelationalParams{
			TenantID:   s.tenantID,
			Email:      "alex@example.com",
			BundleSize: 5,
			Members:    []string{"alex"},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *TenantGateServiceSuite) TestProvisionInstitutional() {
	s.Run("provisions with contract and seat floor", func() {
		result, err := s.service.ProvisionInstitutional(s.ctx, ProvisionInstitutionalParams{
			TenantID:   s.tenantID,
			SeatCount:  40,
			Units:      []string{"engineering", "design"},
			ContractID: "CT-2026-001",
		})
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(models.ClassInstitutional, result.Account.Class())
	})

	s.Run("rejects a seat count below the floor", func() {
		_, err := s.service.ProvisionInstitutional(s.ctx, ProvisionInstitutionalParams{
			TenantID:   s.tenantID,
			SeatCount:  10,
			Units:      []string{"engineering"},
			ContractID: "CT-2026-002",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *TenantGateServiceSuite) TestGetAccount() {
	result, err := s.service.ProvisionInstitutional(s.ctx, ProvisionInstitutionalParams{
		TenantID:   s.tenantID,
		SeatCount:  30,
		Units:      []string{"ops"},
		ContractID: "CT-2026-003",
	})
	s.Require().NoError(err)

	s.Run("finds a provisioned account", func() {
		account, err := s.service.GetAccount(s.ctx, result.Account.AccountID())
		s.Require().NoError(err)
		s.Equal(result.Account.AccountID(), account.AccountID())
	})

	s.Run("unknown account is not found", func() {
		_, err := s.service.GetAccount(s.ctx, id.NewAccountID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
