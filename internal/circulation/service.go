// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package circulation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/librasync/internal/account"
	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/postgres"
	"github.com/taibuivan/librasync/internal/platform/validate"
	"github.com/taibuivan/librasync/pkg/slice"
)

// Ledger is the part of [catalog.Service] that moves copies.
type Ledger interface {
	Get(ctx context.Context, id int64) (*catalog.Book, error)
	Checkout(ctx context.Context, id int64) (*catalog.Book, error)
	Checkin(ctx context.Context, id int64) (*catalog.Book, error)
}

// PatronLookup resolves the account behind a patron session.
type PatronLookup interface {
	Get(ctx context.Context, id string) (*account.Account, error)
}

// UserLister lists the backend's frontend user directory.
type UserLister interface {
	List(ctx context.Context) ([]*account.FrontendUser, error)
}

type Service struct {
	repo            Repository
	ledger          Ledger
	tx              postgres.Transactor
	log             outbox.Appender
	logger          *slog.Logger
	sessions        catalog.SessionValidator
	patrons         PatronLookup
	directory       UserLister
	announceReturns bool
	now             func() time.Time
}

// Option customises a [Service].
type Option func(*Service)

// WithPatrons enables patron borrows, authenticated by sessions.
func WithPatrons(sessions catalog.SessionValidator, patrons PatronLookup) Option {
	return func(service *Service) {
		service.sessions = sessions
		service.patrons = patrons
	}
}

// WithDirectory enables the borrowers report.
func WithDirectory(directory UserLister) Option {
	return func(service *Service) {
		service.directory = directory
	}
}

// AnnounceReturns records a borrow.delete event for every local return.
func AnnounceReturns() Option {
	return func(service *Service) {
		service.announceReturns = true
	}
}

// WithClock replaces the wall clock used for borrow dates and due days.
func WithClock(now func() time.Time) Option {
	return func(service *Service) {
		service.now = now
	}
}

func NewService(repo Repository, ledger Ledger, tx postgres.Transactor, log outbox.Appender, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		repo:   repo,
		ledger: ledger,
		tx:     tx,
		log:    log,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (service *Service) today() time.Time {
	return dateOf(service.now())
}

/*
Borrow lends one copy of a book to the patron behind the session.

The ledger change, the record and both sync events commit together.

Returns:
  - *Record: The new borrow record
  - error: Session errors, VALIDATION_ERROR, NOT_FOUND or BOOK_UNAVAILABLE
*/
func (service *Service) Borrow(ctx context.Context, bookID int64, input BorrowInput) (*Record, error) {
	if service.sessions == nil {
		return nil, apperr.Unauthorized("Borrowing is not available on this service")
	}

	// ── 1. Validation ─────────────────────────────────────────────────────

	validator := &validate.Validator{}
	validator.Range(FieldDurationDays, input.DurationDays, 1, MaxDurationDays)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 2. Identity ───────────────────────────────────────────────────────

	session, err := service.sessions.Validate(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	patron, err := service.patrons.Get(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}

	// ── 3. Ledger and record ──────────────────────────────────────────────

	today := service.today()
	record := &Record{
		AccountID:    patron.ID,
		UserEmail:    patron.Email,
		BookID:       bookID,
		BorrowDate:   today.Format(constants.DateLayout),
		ReturnDate:   today.AddDate(0, 0, input.DurationDays).Format(constants.DateLayout),
		DurationDays: input.DurationDays,
	}

	err = service.tx.WithinTx(ctx, func(ctx context.Context) error {
		book, err := service.ledger.Checkout(ctx, bookID)
		if err != nil {
			return err
		}
		if err := service.repo.Create(ctx, record); err != nil {
			return err
		}
		if err := service.log.Append(ctx, outbox.KindBookUpsert, book.ID, book.Snapshot()); err != nil {
			return err
		}
		return service.log.Append(ctx, outbox.KindBorrowCreate, record.ID, outbox.BorrowPayload{
			ID:           record.ID,
			UserEmail:    record.UserEmail,
			BookID:       record.BookID,
			ReturnDate:   record.ReturnDate,
			DurationDays: record.DurationDays,
		})
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "book_borrowed",
		slog.Int64("record_id", record.ID),
		slog.Int64("book_id", bookID),
		slog.Int("duration_days", record.DurationDays),
	)
	return record, nil
}

/*
Mirror stores a borrow record created on the frontend, keeping its id.

The frontend sends the book's new copy count separately, so the ledger is
left alone here.
*/
func (service *Service) Mirror(ctx context.Context, id int64, input MirrorInput) (*Record, error) {
	input.UserEmail = strings.TrimSpace(input.UserEmail)

	validator := &validate.Validator{}
	validator.Custom(FieldID, input.ID != 0 && input.ID != id, "Does not match the path")
	validator.Email(FieldUserEmail, input.UserEmail)
	validator.Custom(FieldBook, input.BookID < 1, "Must be a positive integer")
	validator.Required(FieldReturnDate, input.ReturnDate)
	validator.Min(FieldDurationDays, input.DurationDays, 1)
	if input.ReturnDate != "" {
		_, err := time.Parse(constants.DateLayout, input.ReturnDate)
		validator.Custom(FieldReturnDate, err != nil, "Must be a date formatted YYYY-MM-DD")
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if _, err := service.ledger.Get(ctx, input.BookID); err != nil {
		return nil, err
	}

	record := &Record{
		ID:           id,
		UserEmail:    input.UserEmail,
		BookID:       input.BookID,
		BorrowDate:   service.today().Format(constants.DateLayout),
		ReturnDate:   input.ReturnDate,
		DurationDays: input.DurationDays,
	}
	if err := service.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "borrow_record_mirrored", slog.Int64("record_id", id), slog.Int64("book_id", input.BookID))
	return record, nil
}

/*
Return closes a borrow: the copy goes back to the ledger and the record is
deleted. With [AnnounceReturns] a borrow.delete event is recorded as well.
*/
func (service *Service) Return(ctx context.Context, id int64) error {
	err := service.tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := service.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if _, err := service.ledger.Checkin(ctx, record.BookID); err != nil {
			return err
		}
		if err := service.repo.Delete(ctx, id); err != nil {
			return err
		}
		if !service.announceReturns {
			return nil
		}
		return service.log.Append(ctx, outbox.KindBorrowDelete, id, outbox.BorrowRef{ID: id})
	})
	if err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "book_returned", slog.Int64("record_id", id))
	return nil
}

func (service *Service) List(ctx context.Context) ([]*Record, error) {
	return service.repo.List(ctx)
}

/*
Borrowers lists every frontend user with the books they currently hold.

Records are matched to users by email, case-insensitively.
*/
func (service *Service) Borrowers(ctx context.Context) ([]*Borrower, error) {
	if service.directory == nil {
		return nil, apperr.Unauthorized("The borrowers report is not available on this service")
	}

	users, err := service.directory.List(ctx)
	if err != nil {
		return nil, err
	}

	records, err := service.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	byEmail := slice.GroupBy(records, func(record *Record) string {
		return strings.ToLower(record.UserEmail)
	})

	books := make(map[int64]BookSummary)
	today := service.today()

	borrowers := make([]*Borrower, 0, len(users))
	for _, user := range users {
		borrower := &Borrower{
			ID:            user.ID,
			Email:         user.Email,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			BorrowedBooks: []BorrowedBook{},
		}

		for _, record := range byEmail[strings.ToLower(user.Email)] {
			summary, ok := books[record.BookID]
			if !ok {
				book, err := service.ledger.Get(ctx, record.BookID)
				if err != nil {
					return nil, err
				}
				summary = summarize(book)
				books[record.BookID] = summary
			}

			borrower.BorrowedBooks = append(borrower.BorrowedBooks, BorrowedBook{
				Book:         summary,
				BorrowDate:   record.BorrowDate,
				ReturnDate:   record.ReturnDate,
				DurationDays: record.DurationDays,
				DueDays:      record.DueDays(today),
			})
		}

		borrowers = append(borrowers, borrower)
	}

	return borrowers, nil
}
