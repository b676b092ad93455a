// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package syncer turns outbox events into calls on the peer service.

Each handler returns a descriptive result such as
"Book 'Dune' successfully created in frontend." Peer answers that retrying
cannot fix are marked permanent so the dispatcher dead-letters the event at
once; transport failures, 5xx, 408 and 429 are left to the retry policy.

Directions:

	backend:  book.upsert, book.delete, borrow.delete
	frontend: book.upsert, borrow.create, user.sync
*/
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/peer"
	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
)

// BookReader loads the current state of a local book.
type BookReader interface {
	Get(ctx context.Context, id int64) (*catalog.Book, error)
}

// Syncer holds the sync handlers of one service.
type Syncer struct {
	client   *peer.Client
	books    BookReader
	tokens   *TokenSource
	strategy string
	peerRole string
	logger   *slog.Logger
}

/*
New builds the handlers for the service in role.

tokens is required on the frontend, whose book writes need an admin session
on the backend, and ignored on the backend.
*/
func New(role string, client *peer.Client, books BookReader, tokens *TokenSource, strategy string, logger *slog.Logger) *Syncer {
	syncer := &Syncer{
		client:   client,
		books:    books,
		strategy: strategy,
		peerRole: constants.RoleBackend,
		logger:   logger,
	}
	if role == constants.RoleBackend {
		syncer.peerRole = constants.RoleFrontend
	} else {
		syncer.tokens = tokens
	}
	return syncer
}

func (syncer *Syncer) towardsBackend() bool {
	return syncer.peerRole == constants.RoleBackend
}

// Register installs this service's handlers on the dispatcher.
func (syncer *Syncer) Register(dispatcher *outbox.Dispatcher) {
	dispatcher.Handle(outbox.KindBookUpsert, outbox.HandlerFunc(syncer.SyncBook))

	if syncer.towardsBackend() {
		dispatcher.Handle(outbox.KindBorrowCreate, outbox.HandlerFunc(syncer.SyncBorrowCreate))
		dispatcher.Handle(outbox.KindUserSync, outbox.HandlerFunc(syncer.SyncUser))
		return
	}

	dispatcher.Handle(outbox.KindBookDelete, outbox.HandlerFunc(syncer.SyncBookDelete))
	dispatcher.Handle(outbox.KindBorrowDelete, outbox.HandlerFunc(syncer.SyncBorrowDelete))
}

// settle marks peer answers that a retry cannot change as permanent.
func settle(err error) error {
	if err == nil || peer.IsTransient(err) {
		return err
	}
	var peerError *peer.Error
	if errors.As(err, &peerError) {
		return outbox.Permanent(err)
	}
	return err
}

// isPeerNotFound reports a 404 from the peer.
func isPeerNotFound(err error) bool {
	var peerError *peer.Error
	return errors.As(err, &peerError) && peerError.Status == http.StatusNotFound
}

// withToken runs call with the admin token, fetching a fresh one once if the
// peer refuses the cached token.
func (syncer *Syncer) withToken(ctx context.Context, call func(token string) error) error {
	if syncer.tokens == nil {
		return call("")
	}

	token, err := syncer.tokens.Token(ctx)
	if err != nil {
		return err
	}

	err = call(token)
	if !peer.IsSessionRejected(err) {
		return err
	}

	syncer.logger.InfoContext(ctx, "peer_token_rejected")
	syncer.tokens.Invalidate(ctx)

	if token, err = syncer.tokens.Token(ctx); err != nil {
		return err
	}
	return call(token)
}

// # Books

/*
SyncBook pushes the current local state of a book to the peer.

The book is read again at dispatch time, so a later job never overwrites the
peer with an older snapshot. A book deleted locally since is skipped.
*/
func (syncer *Syncer) SyncBook(ctx context.Context, event *outbox.Event) (string, error) {
	book, err := syncer.books.Get(ctx, event.AggregateID)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return fmt.Sprintf("Book %d no longer exists locally, nothing to sync.", event.AggregateID), nil
	}
	if err != nil {
		return "", err
	}

	request := peer.BookRequest{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		Category:        string(book.Category),
		Publisher:       string(book.Publisher),
		IsAvailable:     book.IsAvailable,
		AvailableCopies: book.AvailableCopies,
	}

	outcome, err := syncer.pushBook(ctx, request)
	if err != nil {
		return "", settle(err)
	}

	return fmt.Sprintf("Book '%s' successfully %s in %s.", book.Title, outcome, syncer.peerRole), nil
}

// pushBook writes the book to the peer. When existence is checked first, the
// admin token is fetched only after the peer confirms the book exists.
func (syncer *Syncer) pushBook(ctx context.Context, request peer.BookRequest) (string, error) {
	if syncer.strategy == config.BookStrategyUpsert {
		var created bool
		err := syncer.withToken(ctx, func(token string) error {
			request.SessionID = token
			var err error
			created, err = syncer.client.UpsertBook(ctx, request.ID, request)
			return err
		})
		if err != nil {
			return "", err
		}
		if created {
			return "created", nil
		}
		return "updated", nil
	}

	exists, err := syncer.client.ProbeBook(ctx, request.ID)
	if err != nil {
		return "", err
	}

	if exists {
		return "updated", syncer.withToken(ctx, func(token string) error {
			request.SessionID = token
			return syncer.client.EditBook(ctx, request.ID, request)
		})
	}

	// The frontend only edits books the backend already has.
	if syncer.towardsBackend() {
		return "", outbox.Permanent(fmt.Errorf("book '%s' does not exist in the backend", request.Title))
	}
	return "created", syncer.withToken(ctx, func(token string) error {
		request.SessionID = token
		return syncer.client.CreateBook(ctx, request)
	})
}

// SyncBookDelete removes a book from the frontend. A book already gone counts as deleted.
func (syncer *Syncer) SyncBookDelete(ctx context.Context, event *outbox.Event) (string, error) {
	var ref outbox.BookRef
	if err := event.Decode(&ref); err != nil {
		return "", err
	}

	err := syncer.client.DeleteBook(ctx, ref.ID, "")
	if isPeerNotFound(err) {
		return fmt.Sprintf("Book %d was already absent from %s.", ref.ID, syncer.peerRole), nil
	}
	if err != nil {
		return "", settle(err)
	}
	return fmt.Sprintf("Book %d successfully deleted from %s.", ref.ID, syncer.peerRole), nil
}

// # Borrow Records

/*
SyncBorrowCreate mirrors a borrow on the backend.

The return date is sent one day earlier than the local one; the backend
has always received it that way.
*/
func (syncer *Syncer) SyncBorrowCreate(ctx context.Context, event *outbox.Event) (string, error) {
	var payload outbox.BorrowPayload
	if err := event.Decode(&payload); err != nil {
		return "", err
	}

	returnDate, err := time.Parse(constants.DateLayout, payload.ReturnDate)
	if err != nil {
		return "", outbox.Permanent(fmt.Errorf("borrow record %d has an invalid return date %q: %w", payload.ID, payload.ReturnDate, err))
	}

	err = syncer.client.CreateBorrowRecord(ctx, peer.BorrowRecordRequest{
		ID:           payload.ID,
		UserEmail:    payload.UserEmail,
		BookID:       payload.BookID,
		ReturnDate:   returnDate.AddDate(0, 0, -1).Format(constants.DateLayout),
		DurationDays: payload.DurationDays,
	})
	if err != nil {
		return "", settle(err)
	}
	return fmt.Sprintf("Borrow record %d successfully created in %s.", payload.ID, syncer.peerRole), nil
}

// SyncBorrowDelete removes the frontend's copy of a returned borrow.
func (syncer *Syncer) SyncBorrowDelete(ctx context.Context, event *outbox.Event) (string, error) {
	var ref outbox.BorrowRef
	if err := event.Decode(&ref); err != nil {
		return "", err
	}

	err := syncer.client.DeleteBorrowRecord(ctx, ref.ID)
	if isPeerNotFound(err) {
		return fmt.Sprintf("Borrow record %d was already absent from %s.", ref.ID, syncer.peerRole), nil
	}
	if err != nil {
		return "", settle(err)
	}
	return fmt.Sprintf("Borrow record %d successfully deleted from %s.", ref.ID, syncer.peerRole), nil
}

// # Users

// SyncUser adds a patron to the backend's user directory.
func (syncer *Syncer) SyncUser(ctx context.Context, event *outbox.Event) (string, error) {
	var payload outbox.UserPayload
	if err := event.Decode(&payload); err != nil {
		return "", err
	}

	err := syncer.client.SyncUser(ctx, peer.UserRequest{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		return "", settle(err)
	}
	return fmt.Sprintf("User %s successfully synced with %s.", payload.Email, syncer.peerRole), nil
}
