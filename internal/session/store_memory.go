// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"sync"

	"github.com/taibuivan/librasync/internal/platform/apperr"
)

// MemoryRepository is an in-process [Repository] for tests and local tooling.
type MemoryRepository struct {
	mu        sync.Mutex
	byAccount map[string]*Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byAccount: make(map[string]*Session)}
}

func (repository *MemoryRepository) GetByAccount(_ context.Context, accountID string) (*Session, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if session, ok := repository.byAccount[accountID]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, apperr.NotFound(resourceSession)
}

func (repository *MemoryRepository) GetByToken(_ context.Context, token string) (*Session, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	for _, session := range repository.byAccount {
		if session.Token == token {
			copied := *session
			return &copied, nil
		}
	}
	return nil, apperr.NotFound(resourceSession)
}

func (repository *MemoryRepository) Create(_ context.Context, session *Session) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, ok := repository.byAccount[session.AccountID]; ok {
		return apperr.Conflict(resourceSession + " already exists")
	}
	copied := *session
	repository.byAccount[session.AccountID] = &copied
	return nil
}

func (repository *MemoryRepository) Rotate(_ context.Context, session *Session, oldToken string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	current, ok := repository.byAccount[session.AccountID]
	if !ok || current.Token != oldToken {
		return false, nil
	}
	current.Token = session.Token
	current.LastActivity = session.LastActivity
	return true, nil
}
