// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/librasync/internal/platform/apperr"
)

// MemoryRepository is an in-process [Repository] and [DirectoryRepository]
// for tests and local tooling.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[string]*Account
	users    []*FrontendUser
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*Account)}
}

func (repository *MemoryRepository) Create(_ context.Context, account *Account) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, ok := repository.accounts[key]; ok {
		return apperr.Conflict(resourceAccount + " already exists")
	}

	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	repository.accounts[key] = &copied
	return nil
}

func (repository *MemoryRepository) Get(_ context.Context, id string) (*Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, account := range repository.accounts {
		if account.ID == id {
			copied := *account
			return &copied, nil
		}
	}
	return nil, apperr.NotFound(resourceAccount)
}

func (repository *MemoryRepository) GetByEmail(_ context.Context, email string) (*Account, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	account, ok := repository.accounts[strings.ToLower(email)]
	if !ok {
		return nil, apperr.NotFound(resourceAccount)
	}
	copied := *account
	return &copied, nil
}

func (repository *MemoryRepository) Upsert(_ context.Context, user *FrontendUser) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	now := time.Now()
	for _, existing := range repository.users {
		if strings.EqualFold(existing.Email, user.Email) {
			existing.FirstName = user.FirstName
			existing.LastName = user.LastName
			existing.UpdatedAt = now
			*user = *existing
			return false, nil
		}
	}

	user.ID = int64(len(repository.users) + 1)
	user.CreatedAt = now
	user.UpdatedAt = now
	copied := *user
	repository.users = append(repository.users, &copied)
	return true, nil
}

func (repository *MemoryRepository) List(_ context.Context) ([]*FrontendUser, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	users := make([]*FrontendUser, 0, len(repository.users))
	for _, user := range repository.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}
