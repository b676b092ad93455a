// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/validate"
)

// Service issues and validates session tokens under one [Policy].
type Service struct {
	repo   Repository
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithClock replaces the wall clock, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(service *Service) {
		service.now = now
	}
}

func NewService(repo Repository, policy Policy, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		repo:   repo,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Policy returns the lifetime rules this service enforces.
func (service *Service) Policy() Policy {
	return service.policy
}

/*
IssueOrRefresh starts a session for a login.

  - No session: a new one is created.
  - Expired session: the token is rotated in place.
  - Live session: the call fails with SESSION_CONFLICT carrying the live token.

Returns:
  - string: The new session token
  - error: apperr.SessionConflict, or a storage failure
*/
func (service *Service) IssueOrRefresh(ctx context.Context, accountID string) (string, error) {
	existing, err := service.repo.GetByAccount(ctx, accountID)
	if err != nil && !apperr.HasCode(err, apperr.CodeNotFound) {
		return "", fmt.Errorf("session_issue_failed: %w", err)
	}

	if existing != nil && !existing.Expired(service.now(), service.policy.TTL) {
		return "", apperr.SessionConflict(existing.Token)
	}

	token, err := service.start(ctx, accountID, existing)
	if err != nil {
		return "", err
	}

	if token == "" {
		// Lost a race against a concurrent login; report the winner's token.
		winner, err := service.repo.GetByAccount(ctx, accountID)
		if err != nil {
			return "", fmt.Errorf("session_issue_failed: %w", err)
		}
		return "", apperr.SessionConflict(winner.Token)
	}

	return token, nil
}

/*
Acquire returns a usable token for a service account.

It hands back the live token when there is one and otherwise issues or
rotates, so it never fails with a conflict. Sync jobs call it through the
backend's /service-token endpoint.
*/
func (service *Service) Acquire(ctx context.Context, accountID string) (string, error) {
	existing, err := service.repo.GetByAccount(ctx, accountID)
	if err != nil && !apperr.HasCode(err, apperr.CodeNotFound) {
		return "", fmt.Errorf("session_acquire_failed: %w", err)
	}

	if existing != nil && !existing.Expired(service.now(), service.policy.TTL) {
		return existing.Token, nil
	}

	token, err := service.start(ctx, accountID, existing)
	if err != nil {
		return "", err
	}

	if token == "" {
		winner, err := service.repo.GetByAccount(ctx, accountID)
		if err != nil {
			return "", fmt.Errorf("session_acquire_failed: %w", err)
		}
		return winner.Token, nil
	}

	return token, nil
}

// start creates or rotates the account's session. An empty token means a
// concurrent caller won the race.
func (service *Service) start(ctx context.Context, accountID string, existing *Session) (string, error) {
	session := &Session{
		AccountID:    accountID,
		Token:        uuid.NewString(),
		LastActivity: service.now(),
	}

	if existing == nil {
		if err := service.repo.Create(ctx, session); err != nil {
			if apperr.HasCode(err, apperr.CodeConflict) {
				return "", nil
			}
			return "", fmt.Errorf("session_create_failed: %w", err)
		}

		service.logger.Info("session_created",
			slog.String("policy", service.policy.Name),
			slog.String("account_id", accountID),
		)
		return session.Token, nil
	}

	rotated, err := service.repo.Rotate(ctx, session, existing.Token)
	if err != nil {
		return "", fmt.Errorf("session_rotate_failed: %w", err)
	}
	if !rotated {
		return "", nil
	}

	service.logger.Info("session_rotated",
		slog.String("policy", service.policy.Name),
		slog.String("account_id", accountID),
	)
	return session.Token, nil
}

/*
Validate resolves a token to its session.

It never touches last_activity.

Returns:
  - *Session: The live session
  - error: SESSION_NOT_FOUND for unknown tokens, SESSION_EXPIRED past the TTL
*/
func (service *Service) Validate(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, validate.RequiredError(constants.FieldSessionID, "This field is required")
	}

	if _, err := uuid.Parse(token); err != nil {
		return nil, apperr.SessionNotFound()
	}

	session, err := service.repo.GetByToken(ctx, token)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.SessionNotFound()
		}
		return nil, fmt.Errorf("session_validate_failed: %w", err)
	}

	if session.Expired(service.now(), service.policy.TTL) {
		return nil, apperr.SessionExpired()
	}

	return session, nil
}
