// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"log/slog"

	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/postgres"
	"github.com/taibuivan/librasync/internal/platform/validate"
	"github.com/taibuivan/librasync/internal/session"
)

// SessionValidator resolves a session token; [session.Service] implements it.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*session.Session, error)
}

type Service struct {
	repo             Repository
	tx               postgres.Transactor
	log              outbox.Appender
	logger           *slog.Logger
	sessions         SessionValidator
	propagateDeletes bool
}

// Option customises a [Service].
type Option func(*Service)

// RequireSession makes every write check the caller's session first.
func RequireSession(sessions SessionValidator) Option {
	return func(service *Service) {
		service.sessions = sessions
	}
}

// PropagateDeletes records a book.delete event for every local delete.
func PropagateDeletes() Option {
	return func(service *Service) {
		service.propagateDeletes = true
	}
}

func NewService(repo Repository, tx postgres.Transactor, log outbox.Appender, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		repo:   repo,
		tx:     tx,
		log:    log,
		logger: logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// # Reads

func (service *Service) ListAvailable(ctx context.Context) ([]*Book, error) {
	return service.repo.ListAvailable(ctx)
}

func (service *Service) ListByCategory(ctx context.Context, category string) ([]*Book, error) {
	validator := &validate.Validator{}
	if err := validator.Required(FieldCategory, category).OneOf(FieldCategory, category, Categories...).Err(); err != nil {
		return nil, err
	}
	return service.repo.ListByCategory(ctx, Category(category))
}

func (service *Service) ListByPublisher(ctx context.Context, publisher string) ([]*Book, error) {
	validator := &validate.Validator{}
	if err := validator.Required(FieldPublisher, publisher).OneOf(FieldPublisher, publisher, Publishers...).Err(); err != nil {
		return nil, err
	}
	return service.repo.ListByPublisher(ctx, Publisher(publisher))
}

func (service *Service) ListUnavailable(ctx context.Context) ([]*UnavailableBook, error) {
	return service.repo.ListUnavailable(ctx)
}

func (service *Service) Get(ctx context.Context, id int64) (*Book, error) {
	return service.repo.Get(ctx, id)
}

// # Writes

func validateBook(book *Book) error {
	validator := &validate.Validator{}

	validator.Custom(FieldID, book.ID < 0, "Must be a positive integer")
	validator.Required(FieldTitle, book.Title).MaxLen(FieldTitle, book.Title, 255)
	validator.Required(FieldAuthor, book.Author).MaxLen(FieldAuthor, book.Author, 255)
	validator.OneOf(FieldCategory, string(book.Category), Categories...)
	validator.OneOf(FieldPublisher, string(book.Publisher), Publishers...)
	validator.Min(FieldAvailableCopies, book.AvailableCopies, 0)

	return validator.Err()
}

func (service *Service) authorize(ctx context.Context, token string) error {
	if service.sessions == nil {
		return nil
	}
	_, err := service.sessions.Validate(ctx, token)
	return err
}

/*
Create adds a book and records it for sync.

A zero input id lets the store assign one; mirrors pass the peer's id.

Returns:
  - *Book: The stored book
  - error: Session, validation or CONFLICT errors
*/
func (service *Service) Create(ctx context.Context, input *Input) (*Book, error) {
	if err := service.authorize(ctx, input.SessionID); err != nil {
		return nil, err
	}

	book := input.Book()
	if err := validateBook(book); err != nil {
		return nil, err
	}

	err := service.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := service.repo.Create(ctx, book); err != nil {
			return err
		}
		return service.log.Append(ctx, outbox.KindBookUpsert, book.ID, book.Snapshot())
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "book_created", slog.Int64("book_id", book.ID), slog.String("title", book.Title))
	return book, nil
}

/*
Put creates or replaces the book with this id.

Returns:
  - *Book: The stored book
  - bool: true when the book did not exist before
  - error: Session or validation errors
*/
func (service *Service) Put(ctx context.Context, id int64, input *Input) (*Book, bool, error) {
	if err := service.authorize(ctx, input.SessionID); err != nil {
		return nil, false, err
	}

	book := input.Book()
	book.ID = id
	if err := validateBook(book); err != nil {
		return nil, false, err
	}

	var created bool
	err := service.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if created, err = service.repo.Upsert(ctx, book); err != nil {
			return err
		}
		return service.log.Append(ctx, outbox.KindBookUpsert, book.ID, book.Snapshot())
	})
	if err != nil {
		return nil, false, err
	}

	service.logger.InfoContext(ctx, "book_saved", slog.Int64("book_id", book.ID), slog.Bool("created", created))
	return book, created, nil
}

// Delete removes a book. Its borrow records go with it.
func (service *Service) Delete(ctx context.Context, id int64, sessionID string) error {
	if err := service.authorize(ctx, sessionID); err != nil {
		return err
	}

	err := service.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := service.repo.Delete(ctx, id); err != nil {
			return err
		}
		if !service.propagateDeletes {
			return nil
		}
		return service.log.Append(ctx, outbox.KindBookDelete, id, outbox.BookRef{ID: id})
	})
	if err != nil {
		return err
	}

	service.logger.WarnContext(ctx, "book_deleted", slog.Int64("book_id", id))
	return nil
}

// # Ledger

/*
Checkout applies [OnBorrow] to the stored book under a row lock.

Call it inside the caller's transaction; it records no sync event.
*/
func (service *Service) Checkout(ctx context.Context, id int64) (*Book, error) {
	book, err := service.repo.Adjust(ctx, id, OnBorrow)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeBookUnavailable) {
			service.logger.InfoContext(ctx, "book_unavailable", slog.Int64("book_id", id))
		}
		return nil, err
	}
	return book, nil
}

// Checkin applies [OnReturn] to the stored book under a row lock.
func (service *Service) Checkin(ctx context.Context, id int64) (*Book, error) {
	return service.repo.Adjust(ctx, id, func(book Book) (Book, error) {
		return OnReturn(book), nil
	})
}
