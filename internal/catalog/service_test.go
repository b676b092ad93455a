// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/platform/apperr"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/ctxutil"
	"github.com/taibuivan/librasync/internal/platform/postgres"
	"github.com/taibuivan/librasync/internal/session"
	"github.com/taibuivan/librasync/pkg/pointer"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	service  *catalog.Service
	books    *catalog.MemoryRepository
	events   *outbox.MemoryRepository
	sessions *session.Service
	now      time.Time
}

func (f *fixture) clock() time.Time { return f.now }

// newAdminFixture wires the backend flavour: session checks and delete propagation.
func newAdminFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		books:  catalog.NewMemoryRepository(),
		events: outbox.NewMemoryRepository(),
		now:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.sessions = session.NewService(session.NewMemoryRepository(), session.AdminPolicy, discard, session.WithClock(f.clock))
	f.service = catalog.NewService(f.books, postgres.Passthrough{}, outbox.NewLog(f.events, discard), discard,
		catalog.RequireSession(f.sessions), catalog.PropagateDeletes())
	return f
}

func newPatronFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		books:  catalog.NewMemoryRepository(),
		events: outbox.NewMemoryRepository(),
	}
	f.service = catalog.NewService(f.books, postgres.Passthrough{}, outbox.NewLog(f.events, discard), discard)
	return f
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	token, err := f.sessions.IssueOrRefresh(context.Background(), "admin-1")
	require.NoError(t, err)
	return token
}

func dune(token string) *catalog.Input {
	return &catalog.Input{
		SessionID:       token,
		Title:           "Dune",
		Author:          "Frank Herbert",
		Category:        catalog.CategoryFiction,
		Publisher:       catalog.PublisherWiley,
		AvailableCopies: pointer.To(2),
	}
}

func TestCreate_RecordsUpsertEvent(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	input := dune(token)
	input.ID = 1
	book, err := f.service.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.ID)
	assert.True(t, book.IsAvailable)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, outbox.KindBookUpsert, events[0].Kind)
	assert.Equal(t, int64(1), events[0].AggregateID)

	var payload outbox.BookPayload
	require.NoError(t, events[0].Decode(&payload))
	assert.Equal(t, "Dune", payload.Title)
	assert.Equal(t, 2, payload.AvailableCopies)

	// A taken id conflicts and records nothing more.
	_, err = f.service.Create(context.Background(), input)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
	assert.Len(t, f.events.Events(), 1)
}

func TestCreate_AssignsIDAndDefaultsCopies(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	input := dune(token)
	input.AvailableCopies = nil
	input.IsAvailable = pointer.To(false)

	book, err := f.service.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(1), book.ID)
	assert.Equal(t, 1, book.AvailableCopies)
	assert.True(t, book.IsAvailable, "is_available is derived, not taken from input")
}

func TestCreate_Validation(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	input := &catalog.Input{SessionID: token, Category: "poetry", Publisher: "penguin", AvailableCopies: pointer.To(-1)}
	_, err := f.service.Create(context.Background(), input)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, apperr.CodeValidation, appError.Code)

	fields := map[string]bool{}
	for _, detail := range appError.Details {
		fields[detail.Field] = true
	}
	for _, field := range []string{"title", "author", "category", "publisher", "available_copies"} {
		assert.True(t, fields[field], field)
	}
	assert.Empty(t, f.events.Events())
}

/*
TestPut_StaleSessionLeavesBookUnchanged: an edit with a token older than the
admin TTL fails with SESSION_EXPIRED and changes nothing.
*/
func TestPut_StaleSessionLeavesBookUnchanged(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)
	ctx := context.Background()

	_, _, err := f.service.Put(ctx, 1, dune(token))
	require.NoError(t, err)

	f.now = f.now.Add(121 * time.Minute)

	edit := dune(token)
	edit.Title = "Dune Messiah"
	_, _, err = f.service.Put(ctx, 1, edit)
	assert.True(t, apperr.HasCode(err, apperr.CodeSessionExpired))

	book, err := f.service.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Len(t, f.events.Events(), 1)
}

func TestPut_CreateThenReplace(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)
	ctx := context.Background()

	_, created, err := f.service.Put(ctx, 7, dune(token))
	require.NoError(t, err)
	assert.True(t, created)

	edit := dune(token)
	edit.AvailableCopies = pointer.To(0)
	book, created, err := f.service.Put(ctx, 7, edit)
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, book.IsAvailable)

	assert.Len(t, f.events.Events(), 2)
}

func TestPut_WithoutSession(t *testing.T) {
	f := newAdminFixture(t)

	_, _, err := f.service.Put(context.Background(), 1, dune(""))
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	_, _, err = f.service.Put(context.Background(), 1, dune("3f2504e0-4f89-41d3-9a0c-0305e82c3301"))
	assert.True(t, apperr.HasCode(err, apperr.CodeSessionNotFound))
}

func TestDelete_Propagation(t *testing.T) {
	t.Run("backend_records_delete", func(t *testing.T) {
		f := newAdminFixture(t)
		token := f.login(t)
		ctx := context.Background()

		_, _, err := f.service.Put(ctx, 3, dune(token))
		require.NoError(t, err)
		require.NoError(t, f.service.Delete(ctx, 3, token))

		events := f.events.Events()
		require.Len(t, events, 2)
		assert.Equal(t, outbox.KindBookDelete, events[1].Kind)

		err = f.service.Delete(ctx, 3, token)
		assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
	})

	t.Run("frontend_deletes_locally", func(t *testing.T) {
		f := newPatronFixture(t)
		ctx := ctxutil.WithSyncOrigin(context.Background(), constants.RoleBackend)

		_, _, err := f.service.Put(ctx, 3, dune(""))
		require.NoError(t, err)
		require.NoError(t, f.service.Delete(ctx, 3, ""))
		assert.Empty(t, f.events.Events(), "peer writes and frontend deletes are not propagated")
	})
}

func TestListings(t *testing.T) {
	f := newPatronFixture(t)
	ctx := context.Background()

	seed := []catalog.Input{
		{ID: 1, Title: "Dune", Author: "Herbert", Category: catalog.CategoryFiction, Publisher: catalog.PublisherWiley, AvailableCopies: pointer.To(2)},
		{ID: 2, Title: "Go in Action", Author: "Kennedy", Category: catalog.CategoryTechnology, Publisher: catalog.PublisherManning, AvailableCopies: pointer.To(1)},
		{ID: 3, Title: "Cosmos", Author: "Sagan", Category: catalog.CategoryScience, Publisher: catalog.PublisherApress, AvailableCopies: pointer.To(0)},
	}
	for i := range seed {
		_, err := f.service.Create(ctx, &seed[i])
		require.NoError(t, err)
	}

	available, err := f.service.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	byCategory, err := f.service.ListByCategory(ctx, "technology")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, int64(2), byCategory[0].ID)

	byPublisher, err := f.service.ListByPublisher(ctx, "apress")
	require.NoError(t, err)
	assert.Empty(t, byPublisher, "unavailable books are not listed")

	_, err = f.service.ListByCategory(ctx, "poetry")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))

	unavailable, err := f.service.ListUnavailable(ctx)
	require.NoError(t, err)
	require.Len(t, unavailable, 1)
	assert.Equal(t, "Cosmos", unavailable[0].Title)
}

/*
TestCheckout_Concurrent never hands out more copies than exist.
*/
func TestCheckout_Concurrent(t *testing.T) {
	f := newPatronFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, &catalog.Input{ID: 1, Title: "Dune", Author: "Herbert",
		Category: catalog.CategoryFiction, Publisher: catalog.PublisherWiley, AvailableCopies: pointer.To(5)})
	require.NoError(t, err)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		succeeded   int
		unavailable int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Checkout(ctx, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperr.HasCode(err, apperr.CodeBookUnavailable) {
				unavailable++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 7, unavailable)

	book, err := f.service.Get(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, book.AvailableCopies)
	assert.False(t, book.IsAvailable)

	book, err = f.service.Checkin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)
	assert.True(t, book.IsAvailable)
}
