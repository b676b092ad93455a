// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package outbox_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/ctxutil"
	"github.com/taibuivan/librasync/internal/platform/metrics"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type clock struct{ now time.Time }

func (c *clock) Now() time.Time              { return c.now }
func (c *clock) Advance(delta time.Duration) { c.now = c.now.Add(delta) }

func syncConfig(maxAttempts int) config.SyncConfig {
	return config.SyncConfig{
		Workers:      2,
		PollInterval: 10 * time.Millisecond,
		BatchSize:    8,
		MaxAttempts:  maxAttempts,
		RetryBase:    time.Second,
		RetryMax:     10 * time.Second,
	}
}

func setup(t *testing.T, maxAttempts int) (*outbox.Log, *outbox.Dispatcher, *outbox.MemoryRepository, *clock) {
	t.Helper()
	repo := outbox.NewMemoryRepository()
	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	dispatcher := outbox.NewDispatcher(repo, syncConfig(maxAttempts), metrics.New(constants.RoleBackend), discard,
		outbox.WithDispatcherClock(clk.Now))
	log := outbox.NewLog(repo, discard, outbox.WithLogClock(clk.Now))
	log.OnAppend(dispatcher.Wake)
	return log, dispatcher, repo, clk
}

func appendBook(t *testing.T, log *outbox.Log, id int64) {
	t.Helper()
	require.NoError(t, log.Append(context.Background(), outbox.KindBookUpsert, id, outbox.BookPayload{ID: id, Title: "Dune"}))
}

/*
TestDispatcher_Delivered stores the handler's result string.
*/
func TestDispatcher_Delivered(t *testing.T) {
	log, dispatcher, repo, _ := setup(t, 5)
	dispatcher.Handle(outbox.KindBookUpsert, outbox.HandlerFunc(func(ctx context.Context, event *outbox.Event) (string, error) {
		var payload outbox.BookPayload
		require.NoError(t, event.Decode(&payload))
		return "Book '" + payload.Title + "' successfully created in frontend.", nil
	}))

	appendBook(t, log, 1)

	processed, err := dispatcher.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	events := repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, outbox.StatusDelivered, events[0].Status)
	assert.Equal(t, 1, events[0].Attempts)
	assert.Equal(t, "Book 'Dune' successfully created in frontend.", events[0].Result)
}

/*
TestDispatcher_RetryThenDeliver backs off after a transient failure.
*/
func TestDispatcher_RetryThenDeliver(t *testing.T) {
	log, dispatcher, repo, clk := setup(t, 5)

	var calls atomic.Int32
	dispatcher.Handle(outbox.KindBookUpsert, outbox.HandlerFunc(func(ctx context.Context, event *outbox.Event) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("peer unavailable: connection refused")
		}
		return "updated", nil
	}))

	appendBook(t, log, 1)

	_, err := dispatcher.Drain(context.Background())
	require.NoError(t, err)

	event := repo.Events()[0]
	assert.Equal(t, outbox.StatusPending, event.Status)
	assert.Equal(t, "peer unavailable: connection refused", event.LastError)
	assert.Equal(t, clk.Now().Add(time.Second), event.NextAttemptAt)

	// Not due yet.
	processed, err := dispatcher.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)

	clk.Advance(time.Second)
	processed, err = dispatcher.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	event = repo.Events()[0]
	assert.Equal(t, outbox.StatusDelivered, event.Status)
	assert.Equal(t, 2, event.Attempts)
}

/*
TestDispatcher_DeadLetter covers exhausted retries, permanent failures, and
the at-most-once setting.
*/
func TestDispatcher_DeadLetter(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		err         error
		attempts    int
	}{
		{"exhausted", 3, errors.New("peer returned 503"), 3},
		{"permanent", 5, outbox.Permanent(errors.New("peer rejected: 400")), 1},
		{"at_most_once", 1, errors.New("peer returned 503"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, dispatcher, repo, clk := setup(t, tt.maxAttempts)
			dispatcher.Handle(outbox.KindBookUpsert, outbox.HandlerFunc(func(context.Context, *outbox.Event) (string, error) {
				return "", tt.err
			}))

			appendBook(t, log, 9)

			for i := 0; i < 10; i++ {
				_, err := dispatcher.Drain(context.Background())
				require.NoError(t, err)
				clk.Advance(time.Minute)
			}

			event := repo.Events()[0]
			assert.Equal(t, outbox.StatusDead, event.Status)
			assert.Equal(t, tt.attempts, event.Attempts)
			assert.Equal(t, tt.err.Error(), event.LastError)

			dead, err := dispatcher.DeadLetters(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, dead, 1)

			require.NoError(t, dispatcher.Requeue(context.Background(), event.ID))
			event = repo.Events()[0]
			assert.Equal(t, outbox.StatusPending, event.Status)
			assert.Zero(t, event.Attempts)
		})
	}
}

/*
TestDispatcher_UnknownKindAndPanic never lets a job failure escape.
*/
func TestDispatcher_UnknownKindAndPanic(t *testing.T) {
	log, dispatcher, repo, _ := setup(t, 5)
	dispatcher.Handle(outbox.KindBookDelete, outbox.HandlerFunc(func(context.Context, *outbox.Event) (string, error) {
		panic("nil book")
	}))

	appendBook(t, log, 1)
	require.NoError(t, log.Append(context.Background(), outbox.KindBookDelete, 2, outbox.BookRef{ID: 2}))

	_, err := dispatcher.Drain(context.Background())
	require.NoError(t, err)

	for _, event := range repo.Events() {
		assert.Equal(t, outbox.StatusDead, event.Status, event.Kind)
	}
	assert.Contains(t, repo.Events()[0].LastError, "no sync handler")
	assert.Contains(t, repo.Events()[1].LastError, "panicked")
}

/*
TestDispatcher_RetryDelay grows exponentially and caps at RetryMax.
*/
func TestDispatcher_RetryDelay(t *testing.T) {
	_, dispatcher, _, _ := setup(t, 10)

	assert.Equal(t, 1*time.Second, dispatcher.RetryDelay(1))
	assert.Equal(t, 2*time.Second, dispatcher.RetryDelay(2))
	assert.Equal(t, 8*time.Second, dispatcher.RetryDelay(4))
	assert.Equal(t, 10*time.Second, dispatcher.RetryDelay(5))
	assert.Equal(t, 10*time.Second, dispatcher.RetryDelay(30))
}

/*
TestDispatcher_Run delivers in the background and stops with the context.
*/
func TestDispatcher_Run(t *testing.T) {
	repo := outbox.NewMemoryRepository()
	dispatcher := outbox.NewDispatcher(repo, syncConfig(5), metrics.New(constants.RoleFrontend), discard)
	log := outbox.NewLog(repo, discard)
	log.OnAppend(dispatcher.Wake)

	delivered := make(chan int64, 4)
	dispatcher.Handle(outbox.KindUserSync, outbox.HandlerFunc(func(ctx context.Context, event *outbox.Event) (string, error) {
		delivered <- event.AggregateID
		return "User synced successfully.", nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	require.NoError(t, log.Append(context.Background(), outbox.KindUserSync, 0, outbox.UserPayload{Email: "reader@library.test"}))

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

/*
TestLog_SuppressesPeerWrites keeps mirrored changes from echoing back.
*/
func TestLog_SuppressesPeerWrites(t *testing.T) {
	log, _, repo, _ := setup(t, 5)

	peerCtx := ctxutil.WithSyncOrigin(context.Background(), constants.RoleBackend)
	require.NoError(t, log.Append(peerCtx, outbox.KindBookUpsert, 1, outbox.BookPayload{ID: 1}))
	assert.Empty(t, repo.Events())

	localCtx := ctxutil.WithRequestID(context.Background(), "req-1")
	require.NoError(t, log.Append(localCtx, outbox.KindBookUpsert, 1, outbox.BookPayload{ID: 1}))
	require.Len(t, repo.Events(), 1)
	assert.Equal(t, "req-1", repo.Events()[0].RequestID)
	assert.JSONEq(t, `{"id":1,"title":"","author":"","category":"","publisher":"","available_copies":0,"is_available":false}`,
		string(repo.Events()[0].Payload))
}

/*
TestLog_StampsDueTimeFromClock makes a fresh event due on the dispatcher's clock.
*/
func TestLog_StampsDueTimeFromClock(t *testing.T) {
	log, dispatcher, repo, clk := setup(t, 5)
	dispatcher.Handle(outbox.KindBookUpsert, outbox.HandlerFunc(func(ctx context.Context, event *outbox.Event) (string, error) {
		return "ok", nil
	}))

	appendBook(t, log, 7)
	require.Len(t, repo.Events(), 1)
	assert.True(t, repo.Events()[0].NextAttemptAt.Equal(clk.Now()))

	processed, err := dispatcher.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
}
