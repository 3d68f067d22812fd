package memory

import (
	"sync"

	"github.com/cybernerd/agriconnect/internal/domain"
)

// accountRepositoryInMemory — простая in-memory реализация AccountRepository.
type accountRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Account
}

// NewAccountRepository возвращает in-memory справочник аккаунтов.
func NewAccountRepository() domain.AccountRepository {
	return &accountRepositoryInMemory{items: make(map[string]domain.Account)}
}

// Create сохраняет новый аккаунт, если ID ещё не занят.
func (r *accountRepositoryInMemory) Create(account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[account.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.items[account.ID] = account
	return nil
}

// Get возвращает аккаунт или ErrAccountNotFound.
func (r *accountRepositoryInMemory) Get(id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.items[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

var _ domain.AccountRepository = (*accountRepositoryInMemory)(nil)
