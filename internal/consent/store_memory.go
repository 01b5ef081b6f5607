package consent

import (
	"context"
	"sync"
	"time"

	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.ConsentID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.ConsentID]*Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindGranted(_ context.Context, subject id.SubjectID, scope id.ConsentScope) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Subject == subject && r.Scope == scope && r.Status == StatusGranted {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject id.SubjectID) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if r.Subject == subject {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListGrantedExpiredBefore(_ context.Context, cutoff time.Time) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if r.Status == StatusGranted && r.ExpiresAt != nil && !cutoff.Before(*r.ExpiresAt) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
