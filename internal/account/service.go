// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/postgres"
	"github.com/taibuivan/librasync/internal/platform/sec"
	"github.com/taibuivan/librasync/internal/platform/validate"
	"github.com/taibuivan/librasync/pkg/uuidv7"
)

// SessionIssuer is the part of [session.Service] that login needs.
type SessionIssuer interface {
	IssueOrRefresh(ctx context.Context, accountID string) (string, error)
	Acquire(ctx context.Context, accountID string) (string, error)
}

// Service implements registration and login.
type Service struct {
	repo      Repository
	sessions  SessionIssuer
	tx        postgres.Transactor
	log       outbox.Appender
	logger    *slog.Logger
	passwords *sec.Passwords
	announce  bool
	cost      int
}

// Option customises a [Service].
type Option func(*Service)

// AnnounceRegistrations records a user.sync event for every new account, so
// the backend directory learns about frontend patrons.
func AnnounceRegistrations() Option {
	return func(service *Service) {
		service.announce = true
	}
}

// WithPasswordCost sets the bcrypt work factor for new password hashes.
func WithPasswordCost(cost int) Option {
	return func(service *Service) {
		service.cost = cost
	}
}

func NewService(repo Repository, sessions SessionIssuer, tx postgres.Transactor, log outbox.Appender, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		repo:     repo,
		sessions: sessions,
		tx:       tx,
		log:      log,
		logger:   logger,
		cost:     sec.DefaultCost,
	}
	for _, opt := range opts {
		opt(service)
	}
	service.passwords = sec.NewPasswords(service.cost)
	return service
}

/*
Register validates, hashes and persists a new account.

Returns:
  - *Account: The stored account
  - error: VALIDATION_ERROR, or CONFLICT when the email is taken
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	// ── 1. Validation ─────────────────────────────────────────────────────

	input.Email = strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email).MaxLen(FieldEmail, input.Email, 254)
	validator.Required(FieldFirstName, input.FirstName).MaxLen(FieldFirstName, input.FirstName, 100)
	validator.Required(FieldLastName, input.LastName).MaxLen(FieldLastName, input.LastName, 100)
	validator.MinLen(FieldPassword, input.Password, MinPasswordLength).
		Custom(FieldPassword, len(input.Password) > sec.MaxPasswordBytes, "Must be at most 72 bytes")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	hashedPassword, err := service.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_hash_failed: %w", err)
	}

	account := &Account{
		ID:           uuidv7.New(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hashedPassword,
	}

	// ── 3. Persistence ────────────────────────────────────────────────────

	err = service.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := service.repo.Create(ctx, account); err != nil {
			if apperr.HasCode(err, apperr.CodeConflict) {
				return apperr.Conflict("A user with this email already exists")
			}
			return err
		}
		if !service.announce {
			return nil
		}
		return service.log.Append(ctx, outbox.KindUserSync, 0, outbox.UserPayload{
			Email:     account.Email,
			FirstName: account.FirstName,
			LastName:  account.LastName,
		})
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "account_registered", slog.String("account_id", account.ID))
	return account, nil
}

func (service *Service) Get(ctx context.Context, id string) (*Account, error) {
	return service.repo.Get(ctx, id)
}

// authenticate checks credentials. Unknown emails and wrong passwords fail alike.
func (service *Service) authenticate(ctx context.Context, credentials Credentials) (*Account, error) {
	validator := &validate.Validator{}
	validator.Required(FieldEmail, credentials.Email).Required(FieldPassword, credentials.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	account, err := service.repo.GetByEmail(ctx, strings.TrimSpace(credentials.Email))
	if err != nil && !apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, err
	}

	storedHash := ""
	if account != nil {
		storedHash = account.PasswordHash
	}
	if !service.passwords.Verify(credentials.Password, storedHash) {
		return nil, validate.RequiredError(FieldCredentials, "Invalid email or password.")
	}
	return account, nil
}

/*
Login authenticates and starts a session.

Returns:
  - *LoginResult: The first name and the new session token
  - error: VALIDATION_ERROR for bad credentials, SESSION_CONFLICT carrying the
    live token when the account is already logged in
*/
func (service *Service) Login(ctx context.Context, credentials Credentials) (*LoginResult, error) {
	account, err := service.authenticate(ctx, credentials)
	if err != nil {
		return nil, err
	}

	token, err := service.sessions.IssueOrRefresh(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: account.FirstName, SessionID: token}, nil
}

// ServiceToken authenticates and returns a usable session token, reusing the
// live one when there is one.
func (service *Service) ServiceToken(ctx context.Context, credentials Credentials) (*LoginResult, error) {
	account, err := service.authenticate(ctx, credentials)
	if err != nil {
		return nil, err
	}

	token, err := service.sessions.Acquire(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	service.logger.DebugContext(ctx, "service_token_issued", slog.String("account_id", account.ID))
	return &LoginResult{User: account.FirstName, SessionID: token}, nil
}
