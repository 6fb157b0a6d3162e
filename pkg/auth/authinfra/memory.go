package authinfra

import (
	"context"
	"sync"

	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/kernel"
)

// MemoryAccountStore is an in-memory auth.AccountStore for tests and
// local development. It enforces the same per-tenant uniqueness rules as
// the Postgres store.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[int64]*auth.Account
}

// NewMemoryAccountStore creates an empty in-memory store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		nextID:   1,
		accounts: make(map[int64]*auth.Account),
	}
}

// FindByPublicID returns the account with the given public identifier.
func (s *MemoryAccountStore) FindByPublicID(_ context.Context, publicID kernel.PublicID) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.PublicID == publicID {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

// FindByUsername returns the tenant's account with the given username.
func (s *MemoryAccountStore) FindByUsername(_ context.Context, service kernel.Service, username string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Service == service && a.Username == username {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

// FindByEmail returns the tenant's account with the given email.
func (s *MemoryAccountStore) FindByEmail(_ context.Context, service kernel.Service, email string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Service == service && a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

// Insert persists a new account, enforcing per-tenant uniqueness of email
// and username under the store lock.
func (s *MemoryAccountStore) Insert(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Service == account.Service && (a.Email == account.Email || a.Username == account.Username) {
			return auth.ErrConflict()
		}
	}

	account.ID = s.nextID
	s.nextID++
	s.accounts[account.ID] = copyAccount(account)

	return nil
}

// Update persists mutated account state by internal ID.
func (s *MemoryAccountStore) Update(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return auth.ErrAccountNotFound()
	}
	s.accounts[account.ID] = copyAccount(account)

	return nil
}

func copyAccount(a *auth.Account) *auth.Account {
	c := *a
	return &c
}
