package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custos/internal/ledger"
	"custos/pkg/requestcontext"
)

type AggregateServiceSuite struct {
	suite.Suite
	ledgerStore *ledger.InMemoryStore
	service     *Service
	ctx         context.Context
	now         time.Time
}

func (s *AggregateServiceSuite) SetupTest() {
	s.ledgerStore = ledger.NewInMemoryStore()
	s.service = NewService(ledger.NewService(s.ledgerStore))
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestAggregateServiceSuite(t *testing.T) {
	suite.Run(t, new(AggregateServiceSuite))
}

func (s *AggregateServiceSuite) aged(unit string, state SignalState, count int) []RawSignal {
	out := make([]RawSignal, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, RawSignal{Unit: unit, State: state, Timestamp: s.now.Add(-time.Hour)})
	}
	return out
}

// TestComputeMetrics verifies the inclusion delay participates in the floor
// check: signals younger than the delay are invisible to aggregation.
func (s *AggregateServiceSuite) TestComputeMetrics() {
	s.Run("delay can push a unit below the floor", func() {
		set := s.aged("engineering", StateAvailable, 4)
		// Fifth signal arrived just now; without the delay the unit would
		// clear the floor.
		set = append(set, RawSignal{Unit: "engineering", State: StateAvailable, Timestamp: s.now})

		m := s.service.ComputeMetrics(s.ctx, "engineering", set)
		s.True(m.IsSuppressed)
	})

	s.Run("aged signals aggregate normally", func() {
		m := s.service.ComputeMetrics(s.ctx, "engineering", s.aged("engineering", StateAvailable, 5))
		s.False(m.IsSuppressed)
		s.Equal(5, m.SignalCount)
	})
}

// TestValidateFilteredView verifies the post-filter count decides, not the
// pre-filter count.
func (s *AggregateServiceSuite) TestValidateFilteredView() {
	all := append(
		s.aged("engineering", StateAvailable, 7),
		s.aged("engineering", StateOverloaded, 3)...,
	)

	s.Run("safe in aggregate", func() {
		d := s.service.ValidateFilteredView(s.ctx, all, SignalFilter{Unit: "engineering"})
		s.True(d.Allowed)
		s.Equal(10, d.ResultingCount)
	})

	s.Run("unsafe once filtered", func() {
		d := s.service.ValidateFilteredView(s.ctx, all, SignalFilter{
			Unit:   "engineering",
			States: []SignalState{StateOverloaded},
		})
		s.False(d.Allowed)
		s.Equal(3, d.ResultingCount)
	})
}

func (s *AggregateServiceSuite) TestValidateExport() {
	all := append(
		s.aged("engineering", StateAvailable, 6),
		s.aged("design", StateAvailable, 4)...,
	)

	s.Run("blocks the whole export on one small unit", func() {
		d, err := s.service.ValidateExport(s.ctx, all, ExportRequest{Units: []string{"engineering", "design"}})
		s.Require().NoError(err)
		s.False(d.Allowed)
		s.Equal([]string{"design"}, d.BlockedUnits)
	})

	s.Run("records the denial in the ledger", func() {
		entries, err := s.ledgerStore.List(s.ctx, ledger.Filter{Kind: ledger.KindExportDenied})
		s.Require().NoError(err)
		s.NotEmpty(entries)
	})

	s.Run("allows an export of only safe units", func() {
		d, err := s.service.ValidateExport(s.ctx, all, ExportRequest{Units: []string{"engineering"}})
		s.Require().NoError(err)
		s.True(d.Allowed)
		s.Empty(d.BlockedUnits)
	})
}
