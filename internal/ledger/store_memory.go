package ledger

import (
	"context"
	"sync"

	"custos/pkg/platform/sentinel"
)

// InMemoryStore keeps the chain in process memory. Used by tests and by
// deployments that have not wired a durable store yet.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []AuditEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) > 0 && entry.Sequence <= s.entries[len(s.entries)-1].Sequence {
		return sentinel.ErrConflict
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AuditEntry
	for _, e := range s.entries {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) All(_ context.Context) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditEntry{}, s.entries...), nil
}

func (s *InMemoryStore) Last(_ context.Context) (AuditEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return AuditEntry{}, false, nil
	}
	return s.entries[len(s.entries)-1], true, nil
}

// Tamper mutates a stored entry in place. Test hook only: integrity
// verification must detect exactly this kind of retroactive edit.
func (s *InMemoryStore) Tamper(sequence uint64, mutate func(*AuditEntry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Sequence == sequence {
			mutate(&s.entries[i])
			return true
		}
	}
	return false
}
