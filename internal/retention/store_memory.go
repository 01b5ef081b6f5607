package retention

import (
	"context"
	"sort"
	"sync"
	"time"

	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	policies  map[id.PolicyID]*RetentionPolicy
	schedules map[id.ScheduleID]*RetentionSchedule
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		policies:  make(map[id.PolicyID]*RetentionPolicy),
		schedules: make(map[id.ScheduleID]*RetentionSchedule),
	}
}

func (s *InMemoryStore) SavePolicy(_ context.Context, policy *RetentionPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policies[policy.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *policy
	s.policies[policy.ID] = &cp
	return nil
}

func (s *InMemoryStore) UpdatePolicy(_ context.Context, policy *RetentionPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.policies[policy.ID]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *policy
	s.policies[policy.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetPolicy(_ context.Context, policyID id.PolicyID) (*RetentionPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.policies[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *policy
	return &cp, nil
}

func (s *InMemoryStore) FindActivePolicy(_ context.Context, tenantID id.TenantID) (*RetentionPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, policy := range s.policies {
		if policy.TenantID == tenantID && policy.Active {
			cp := *policy
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) SaveSchedule(_ context.Context, schedule *RetentionSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schedules[schedule.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *schedule
	s.schedules[schedule.ID] = &cp
	return nil
}

func (s *InMemoryStore) UpdateSchedule(_ context.Context, schedule *RetentionSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schedules[schedule.ID]; !exists {
		return sentinel.ErrNotFound
	}
	cp := *schedule
	s.schedules[schedule.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetSchedule(_ context.Context, scheduleID id.ScheduleID) (*RetentionSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *schedule
	return &cp, nil
}

func (s *InMemoryStore) ListActiveSchedules(_ context.Context) ([]*RetentionSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*RetentionSchedule
	for _, schedule := range s.schedules {
		if schedule.Status == ScheduleActive {
			cp := *schedule
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListDueBetween(_ context.Context, from, to time.Time) ([]*RetentionSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*RetentionSchedule
	for _, schedule := range s.schedules {
		if schedule.Status != ScheduleActive || schedule.DueAt == nil {
			continue
		}
		if schedule.DueAt.Before(from) || schedule.DueAt.After(to) {
			continue
		}
		cp := *schedule
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(*out[j].DueAt) })
	return out, nil
}
