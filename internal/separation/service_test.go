package separation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custos/internal/ledger"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

type SeparationServiceSuite struct {
	suite.Suite
	identities  *InMemoryIdentityStore
	patterns    *InMemoryPatternStore
	ledgerStore *ledger.InMemoryStore
	service     *Service
	ctx         context.Context
	tenantID    id.TenantID
}

func (s *SeparationServiceSuite) SetupTest() {
	s.identities = NewInMemoryIdentityStore()
	s.patterns = NewInMemoryPatternStore()
	s.ledgerStore = ledger.NewInMemoryStore()
	s.service = NewService(s.identities, s.patterns, ledger.NewService(s.ledgerStore))
	s.ctx = requestcontext.WithTime(context.Background(),
		time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	s.tenantID = id.NewTenantID()
}

func TestSeparationServiceSuite(t *testing.T) {
	suite.Run(t, new(SeparationServiceSuite))
}

func (s *SeparationServiceSuite) register(name string) *IdentityRecord {
	record, err := s.service.RegisterIdentity(s.ctx, RegisterIdentityParams{
		TenantID:    s.tenantID,
		DisplayName: name,
		Email:       name + "@example.com",
	})
	s.Require().NoError(err)
	return record
}

func (s *SeparationServiceSuite) TestRegisterIdentity() {
	s.Run("identical identities get distinct opaque references", func() {
		first := s.register("alex")
		second := s.register("alex")
		s.NotEmpty(first.OpaqueRef)
		s.NotEqual(first.OpaqueRef, second.OpaqueRef)
	})

	s.Run("reference carries nothing derivable from the identity", func() {
		record := s.register("sam")
		s.NotContains(record.OpaqueRef, record.ID.String())
		s.NotContains(record.OpaqueRef, "sam")
	})
}

func (s *SeparationServiceSuite) TestRecordPattern() {
	identity := s.register("alex")

	record, err := s.service.RecordPattern(s.ctx, identity.OpaqueRef, "capacity_signal",
		map[string]string{"unit": "engineering", "state": "available"})
	s.Require().NoError(err)
	s.Equal(identity.OpaqueRef, record.OpaqueRef)

	listed, err := s.service.ListPatterns(s.ctx, identity.OpaqueRef)
	s.Require().NoError(err)
	s.Len(listed, 1)

	_, err = s.service.RecordPattern(s.ctx, "", "capacity_signal", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *SeparationServiceSuite) TestPurgeIdentity() {
	identity := s.register("alex")
	other := s.register("sam")
	for i := 0; i < 3; i++ {
		_, err := s.service.RecordPattern(s.ctx, identity.OpaqueRef, "capacity_signal", nil)
		s.Require().NoError(err)
	}
	_, err := s.service.RecordPattern(s.ctx, other.OpaqueRef, "capacity_signal", nil)
	s.Require().NoError(err)

	s.Run("removes the identity and every linked pattern", func() {
		result, err := s.service.PurgeIdentity(s.ctx, identity.ID)
		s.Require().NoError(err)
		s.True(result.Complete())
		s.True(result.IdentityDeleted)
		s.Equal(3, result.PatternsPurged)

		_, err = s.service.GetIdentity(s.ctx, identity.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		remaining, err := s.service.ListPatterns(s.ctx, other.OpaqueRef)
		s.Require().NoError(err)
		s.Len(remaining, 1, "other references are untouched")

		entries, err := s.ledgerStore.List(s.ctx, ledger.Filter{Kind: ledger.KindIdentityPurged})
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal("3", entries[0].Metadata["pattern_count"])
	})

	s.Run("purging an unknown identity is not found", func() {
		_, err := s.service.PurgeIdentity(s.ctx, id.NewIdentityID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *SeparationServiceSuite) TestPurgeReportsPartialFailure() {
	identity := s.register("alex")
	_, err := s.service.RecordPattern(s.ctx, identity.OpaqueRef, "capacity_signal", nil)
	s.Require().NoError(err)

	broken := NewService(s.identities, s.patterns, failingRecorder{})
	result, err := broken.PurgeIdentity(s.ctx, identity.ID)
	s.Require().Error(err)
	s.False(result.Complete())
	s.Require().Len(result.Steps, 1)
	s.Equal("audit", result.Steps[0].Name)
	s.False(result.Steps[0].Completed)

	// Nothing moved: audit gating stopped the purge before any deletion.
	stored, err := s.service.GetIdentity(s.ctx, identity.ID)
	s.Require().NoError(err)
	patterns, err := s.service.ListPatterns(s.ctx, stored.OpaqueRef)
	s.Require().NoError(err)
	s.Len(patterns, 1)
}

func (s *SeparationServiceSuite) TestPurgeByReference() {
	s.Run("purges the owning identity and its patterns", func() {
		identity := s.register("alex")
		_, err := s.service.RecordPattern(s.ctx, identity.OpaqueRef, "capacity_signal", nil)
		s.Require().NoError(err)

		s.Require().NoError(s.service.PurgeByReference(s.ctx, identity.OpaqueRef))

		_, err = s.service.GetIdentity(s.ctx, identity.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("orphaned patterns are still removed", func() {
		ref := NewOpaqueReference()
		_, err := s.service.RecordPattern(s.ctx, ref, "capacity_signal", nil)
		s.Require().NoError(err)

		s.Require().NoError(s.service.PurgeByReference(s.ctx, ref))

		remaining, err := s.service.ListPatterns(s.ctx, ref)
		s.Require().NoError(err)
		s.Empty(remaining)
	})
}

type failingRecorder struct{}

func (failingRecorder) Append(context.Context, ledger.AppendParams) (ledger.AuditEntry, error) {
	return ledger.AuditEntry{}, errors.New("ledger unavailable")
}
