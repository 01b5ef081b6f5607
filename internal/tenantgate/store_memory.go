package tenantgate

import (
	"context"
	"sync"

	"custos/internal/tenantgate/models"
	id "custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.Account
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{accounts: make(map[id.AccountID]models.Account)}
}

func (s *InMemoryAccountStore) Save(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.AccountID()]; exists {
		return sentinel.ErrConflict
	}
	s.accounts[account.AccountID()] = account
	return nil
}

func (s *InMemoryAccountStore) FindByID(_ context.Context, accountID id.AccountID) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return account, nil
}
