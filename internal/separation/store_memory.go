package separation

import (
	"context"
	"sync"

	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

type InMemoryIdentityStore struct {
	mu      sync.RWMutex
	records map[id.IdentityID]*IdentityRecord
}

func NewInMemoryIdentityStore() *InMemoryIdentityStore {
	return &InMemoryIdentityStore{records: make(map[id.IdentityID]*IdentityRecord)}
}

func (s *InMemoryIdentityStore) Save(_ context.Context, record *IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *InMemoryIdentityStore) Get(_ context.Context, identityID id.IdentityID) (*IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *InMemoryIdentityStore) FindByReference(_ context.Context, opaqueRef string) (*IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.OpaqueRef == opaqueRef {
			cp := *record
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryIdentityStore) Delete(_ context.Context, identityID id.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[identityID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, identityID)
	return nil
}

type InMemoryPatternStore struct {
	mu      sync.RWMutex
	records []*PatternRecord
}

func NewInMemoryPatternStore() *InMemoryPatternStore {
	return &InMemoryPatternStore{}
}

func (s *InMemoryPatternStore) Save(_ context.Context, record *PatternRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records = append(s.records, &cp)
	return nil
}

func (s *InMemoryPatternStore) ListByReference(_ context.Context, opaqueRef string) ([]*PatternRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*PatternRecord
	for _, record := range s.records {
		if record.OpaqueRef == opaqueRef {
			cp := *record
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryPatternStore) DeleteByReference(_ context.Context, opaqueRef string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	deleted := 0
	for _, record := range s.records {
		if record.OpaqueRef == opaqueRef {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	s.records = kept
	return deleted, nil
}
