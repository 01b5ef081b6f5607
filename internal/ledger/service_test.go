package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "custos/pkg/domain-errors"
	"custos/pkg/requestcontext"
)

type LedgerServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
	ctx     context.Context
}

func (s *LedgerServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.service = NewService(s.store)
	s.ctx = context.Background()
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) appendN(n int) []AuditEntry {
	entries := make([]AuditEntry, 0, n)
	for i := 0; i < n; i++ {
		entry, err := s.service.Append(s.ctx, AppendParams{
			Kind:   KindConsentGranted,
			Actor:  Actor{Type: ActorSubject, Ref: fmt.Sprintf("subject-%d", i)},
			Action: "granted consent",
			Scope:  "capacity_logging",
		})
		s.Require().NoError(err)
		entries = append(entries, entry)
	}
	return entries
}

// TestAppend verifies sequence assignment and chain linkage.
func (s *LedgerServiceSuite) TestAppend() {
	s.Run("assigns gapless monotonic sequences", func() {
		entries := s.appendN(5)
		for i, e := range entries {
			s.Equal(uint64(i+1), e.Sequence)
		}
	})

	s.Run("links first entry to the genesis sentinel", func() {
		s.SetupTest()
		entry, err := s.service.Append(s.ctx, AppendParams{
			Kind:   KindPolicyCreated,
			Actor:  Actor{Type: ActorSystem, Ref: "retention"},
			Action: "created policy",
		})
		s.Require().NoError(err)
		s.Equal(GenesisHash, entry.PreviousHash)
	})

	s.Run("links each entry to the prior entry hash", func() {
		entries := s.appendN(3)
		s.Equal(entries[0].EntryHash, entries[1].PreviousHash)
		s.Equal(entries[1].EntryHash, entries[2].PreviousHash)
	})

	s.Run("honors a pinned request clock", func() {
		pinned := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, pinned)
		entry, err := s.service.Append(ctx, AppendParams{
			Kind:   KindConsentRevoked,
			Actor:  Actor{Type: ActorSubject, Ref: "subject-1"},
			Action: "revoked consent",
		})
		s.Require().NoError(err)
		s.Equal(pinned, entry.Timestamp)
	})

	s.Run("rejects incomplete params", func() {
		_, err := s.service.Append(s.ctx, AppendParams{
			Kind:  KindConsentGranted,
			Actor: Actor{Type: ActorSubject, Ref: "subject-1"},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestVerifyChainIntegrity covers the detection guarantees: a clean chain
// verifies, and mutating any single stored field of any entry is caught at
// that entry's sequence.
func (s *LedgerServiceSuite) TestVerifyChainIntegrity() {
	s.Run("empty ledger is valid", func() {
		report, err := s.service.VerifyChainIntegrity(s.ctx)
		s.Require().NoError(err)
		s.True(report.Valid)
		s.Zero(report.Entries)
	})

	s.Run("sequential appends verify clean", func() {
		s.appendN(20)
		report, err := s.service.VerifyChainIntegrity(s.ctx)
		s.Require().NoError(err)
		s.True(report.Valid)
		s.Equal(20, report.Entries)
	})

	s.Run("verifies after a microsecond-precision storage round-trip", func() {
		s.SetupTest()
		// Entries appended with the wall clock carry nanoseconds; the
		// durable timestamptz column keeps only microseconds. The chain
		// must verify against what the store returns.
		entries := s.appendN(3)
		for _, e := range entries {
			s.Require().True(s.store.Tamper(e.Sequence, func(e *AuditEntry) {
				e.Timestamp = e.Timestamp.Truncate(time.Microsecond)
			}))
		}
		report, err := s.service.VerifyChainIntegrity(s.ctx)
		s.Require().NoError(err)
		s.True(report.Valid)
	})
}

func (s *LedgerServiceSuite) TestTamperDetection() {
	mutations := map[string]func(*AuditEntry){
		"action":        func(e *AuditEntry) { e.Action = "something else" },
		"actor ref":     func(e *AuditEntry) { e.Actor.Ref = "attacker" },
		"scope":         func(e *AuditEntry) { e.Scope = "pattern_analysis" },
		"timestamp":     func(e *AuditEntry) { e.Timestamp = e.Timestamp.Add(time.Hour) },
		"kind":          func(e *AuditEntry) { e.Kind = KindConsentRevoked },
		"previous hash": func(e *AuditEntry) { e.PreviousHash = GenesisHash },
		"entry hash":    func(e *AuditEntry) { e.EntryHash = GenesisHash },
	}

	for name, mutate := range mutations {
		s.Run("detects mutated "+name, func() {
			s.SetupTest()
			s.appendN(10)
			const victim = uint64(4)
			s.Require().True(s.store.Tamper(victim, mutate))

			report, err := s.service.VerifyChainIntegrity(s.ctx)
			s.Require().NoError(err)
			s.False(report.Valid)
			s.Require().NotNil(report.BrokenAtSequence)
			s.Equal(victim, *report.BrokenAtSequence)
		})
	}
}

func (s *LedgerServiceSuite) TestConcurrentAppends() {
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.service.Append(s.ctx, AppendParams{
					Kind:   KindConsentGranted,
					Actor:  Actor{Type: ActorSubject, Ref: fmt.Sprintf("writer-%d", w)},
					Action: "granted consent",
				})
				s.NoError(err)
			}
		}(w)
	}
	wg.Wait()

	report, err := s.service.VerifyChainIntegrity(s.ctx)
	s.Require().NoError(err)
	s.True(report.Valid)
	s.Equal(writers*perWriter, report.Entries)
}

func (s *LedgerServiceSuite) TestReadAccessors() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Hour))
		kind := KindConsentGranted
		if i%2 == 1 {
			kind = KindConsentRevoked
		}
		_, err := s.service.Append(ctx, AppendParams{
			Kind:   kind,
			Actor:  Actor{Type: ActorSubject, Ref: fmt.Sprintf("subject-%d", i%2)},
			Action: "consent change",
			Target: "consent-record",
		})
		s.Require().NoError(err)
	}

	s.Run("filters by kind", func() {
		entries, err := s.service.ListByKind(s.ctx, KindConsentRevoked)
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("filters by actor", func() {
		entries, err := s.service.ListByActor(s.ctx, "subject-0")
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("filters by target", func() {
		entries, err := s.service.ListByTarget(s.ctx, "consent-record")
		s.Require().NoError(err)
		s.Len(entries, 4)
	})

	s.Run("filters by time range", func() {
		entries, err := s.service.ListByTimeRange(s.ctx, base.Add(30*time.Minute), base.Add(2*time.Hour))
		s.Require().NoError(err)
		s.Len(entries, 2)
	})
}
