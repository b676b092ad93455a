// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package syncer_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/peer"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/metrics"
	"github.com/taibuivan/librasync/internal/syncer"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakePeer answers scripted responses and records what it was asked.
type fakePeer struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
	answer   func(call int, r *http.Request) (int, map[string]any)
}

func (f *fakePeer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, body)
	call := len(f.requests)
	f.mu.Unlock()

	status, envelope := f.answer(call, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

func (f *fakePeer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakePeer) body(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[i]
}

type fixture struct {
	peer   *fakePeer
	books  *catalog.MemoryRepository
	cache  *syncer.MemoryCache
	client *peer.Client
	cfg    config.PeerConfig
}

// newFixture points a client at a fake peer. role is the local service.
func newFixture(t *testing.T, role string, answer func(call int, r *http.Request) (int, map[string]any)) *fixture {
	t.Helper()
	fake := &fakePeer{answer: answer}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := config.PeerConfig{
		BaseURL:       server.URL,
		Timeout:       time.Second,
		AdminEmail:    "Admin@Library.test",
		AdminPassword: "backend-secret",
	}

	books := catalog.NewMemoryRepository()
	dune := &catalog.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Category: catalog.CategoryFiction, Publisher: catalog.PublisherWiley, AvailableCopies: 2}
	dune.Normalize()
	require.NoError(t, books.Create(context.Background(), dune))

	return &fixture{
		peer:   fake,
		books:  books,
		cache:  syncer.NewMemoryCache(),
		client: peer.NewClient(cfg, role, metrics.New(role)),
		cfg:    cfg,
	}
}

func (f *fixture) syncer(role, strategy, tokenMode string) *syncer.Syncer {
	var tokens *syncer.TokenSource
	if role == constants.RoleFrontend {
		tokens = syncer.NewTokenSource(f.client, f.cache, f.cfg, tokenMode, discard)
	}
	return syncer.New(role, f.client, f.books, tokens, strategy, discard)
}

func event(t *testing.T, kind outbox.Kind, aggregateID int64, payload any) *outbox.Event {
	t.Helper()
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	return &outbox.Event{ID: 1, Kind: kind, AggregateID: aggregateID, Payload: encoded, Attempts: 1}
}

func ok(status int) (int, map[string]any) {
	return status, map[string]any{"success": true, "message": "ok"}
}

func fail(status int, code string) (int, map[string]any) {
	return status, map[string]any{"success": false, "message": "failed", "code": code}
}

func serviceToken(token string) (int, map[string]any) {
	return http.StatusOK, map[string]any{"success": true, "data": map[string]string{"user": "admin", "session_id": token}}
}

// # Books

func TestSyncBook_Upsert(t *testing.T) {
	f := newFixture(t, constants.RoleBackend, func(call int, r *http.Request) (int, map[string]any) {
		if call == 1 {
			return ok(http.StatusCreated)
		}
		return ok(http.StatusOK)
	})
	s := f.syncer(constants.RoleBackend, config.BookStrategyUpsert, "")

	result, err := s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, "Book 'Dune' successfully created in frontend.", result)

	result, err = s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, "Book 'Dune' successfully updated in frontend.", result)

	assert.Equal(t, []string{"PUT /books/1", "PUT /books/1"}, f.peer.calls())
	body := f.peer.body(0)
	assert.Equal(t, float64(2), body["available_copies"])
	assert.Equal(t, true, body["is_available"])
	assert.NotContains(t, body, "session_id")
}

func TestSyncBook_ProbeCreatesOnFrontend(t *testing.T) {
	f := newFixture(t, constants.RoleBackend, func(call int, r *http.Request) (int, map[string]any) {
		if r.Method == http.MethodGet {
			return fail(http.StatusNotFound, "NOT_FOUND")
		}
		return ok(http.StatusCreated)
	})
	s := f.syncer(constants.RoleBackend, config.BookStrategyProbe, "")

	result, err := s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, "Book 'Dune' successfully created in frontend.", result)
	assert.Equal(t, []string{"GET /books/1", "POST /books/add"}, f.peer.calls())
}

func TestSyncBook_ProbeEditsExisting(t *testing.T) {
	f := newFixture(t, constants.RoleFrontend, func(call int, r *http.Request) (int, map[string]any) {
		if r.URL.Path == "/service-token" {
			return serviceToken("admin-token")
		}
		return ok(http.StatusOK)
	})
	s := f.syncer(constants.RoleFrontend, config.BookStrategyProbe, config.TokenModeService)

	result, err := s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, "Book 'Dune' successfully updated in backend.", result)
	assert.Equal(t, []string{"GET /books/1", "POST /service-token", "PUT /books/1"}, f.peer.calls())
	assert.Equal(t, "admin-token", f.peer.body(2)["session_id"])
}

func TestSyncBook_ProbeNeverCreatesOnBackend(t *testing.T) {
	for _, mode := range []string{config.TokenModeService, config.TokenModeLogin} {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, constants.RoleFrontend, func(call int, r *http.Request) (int, map[string]any) {
				if r.Method == http.MethodPost {
					return serviceToken("admin-token")
				}
				return fail(http.StatusNotFound, "NOT_FOUND")
			})
			s := f.syncer(constants.RoleFrontend, config.BookStrategyProbe, mode)

			_, err := s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 1, nil))
			require.Error(t, err)
			assert.True(t, outbox.IsPermanent(err))
			assert.Contains(t, err.Error(), "book 'Dune' does not exist in the backend")

			// No admin session is opened for a book the backend lacks.
			assert.Equal(t, []string{"GET /books/1"}, f.peer.calls())
		})
	}
}

func TestSyncBook_SkipsBookDeletedLocally(t *testing.T) {
	f := newFixture(t, constants.RoleBackend, func(int, *http.Request) (int, map[string]any) {
		return ok(http.StatusOK)
	})
	s := f.syncer(constants.RoleBackend, config.BookStrategyUpsert, "")

	result, err := s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 99, nil))
	require.NoError(t, err)
	assert.Equal(t, "Book 99 no longer exists locally, nothing to sync.", result)
	assert.Empty(t, f.peer.calls())
}

func TestSyncBook_RejectedTokenIsReplacedOnce(t *testing.T) {
	f := newFixture(t, constants.RoleFrontend, func(call int, r *http.Request) (int, map[string]any) {
		if r.URL.Path == "/service-token" {
			return serviceToken("fresh")
		}
		if call == 1 {
			return fail(http.StatusUnauthorized, "SESSION_EXPIRED")
		}
		return ok(http.StatusOK)
	})
	key := constants.RedisPrefixPeerToken + "admin@library.test"
	require.NoError(t, f.cache.Set(context.Background(), key, "stale", time.Hour))
	s := f.syncer(constants.RoleFrontend, config.BookStrategyUpsert, config.TokenModeService)

	result, err := s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, "Book 'Dune' successfully updated in backend.", result)

	assert.Equal(t, []string{"PUT /books/1", "POST /service-token", "PUT /books/1"}, f.peer.calls())
	assert.Equal(t, "stale", f.peer.body(0)["session_id"])
	assert.Equal(t, "fresh", f.peer.body(2)["session_id"])

	cached, _ := f.cache.Get(context.Background(), key)
	assert.Equal(t, "fresh", cached)
}

func TestSyncBook_PeerFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{"server error is retried", http.StatusServiceUnavailable, false},
		{"rate limit is retried", http.StatusTooManyRequests, false},
		{"validation is permanent", http.StatusBadRequest, true},
		{"conflict is permanent", http.StatusConflict, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, constants.RoleBackend, func(int, *http.Request) (int, map[string]any) {
				return fail(tc.status, "ERROR")
			})
			s := f.syncer(constants.RoleBackend, config.BookStrategyUpsert, "")

			_, err := s.SyncBook(context.Background(), event(t, outbox.KindBookUpsert, 1, nil))
			require.Error(t, err)
			assert.Equal(t, tc.permanent, outbox.IsPermanent(err))
			assert.Equal(t, !tc.permanent, peer.IsTransient(err))
		})
	}
}

func TestSyncBookDelete(t *testing.T) {
	f := newFixture(t, constants.RoleBackend, func(call int, r *http.Request) (int, map[string]any) {
		if call == 1 {
			return ok(http.StatusOK)
		}
		return fail(http.StatusNotFound, "NOT_FOUND")
	})
	s := f.syncer(constants.RoleBackend, config.BookStrategyUpsert, "")

	result, err := s.SyncBookDelete(context.Background(), event(t, outbox.KindBookDelete, 4, outbox.BookRef{ID: 4}))
	require.NoError(t, err)
	assert.Equal(t, "Book 4 successfully deleted from frontend.", result)

	result, err = s.SyncBookDelete(context.Background(), event(t, outbox.KindBookDelete, 4, outbox.BookRef{ID: 4}))
	require.NoError(t, err)
	assert.Equal(t, "Book 4 was already absent from frontend.", result)
}

// # Borrow Records

func TestSyncBorrowCreate_SendsEarlierReturnDate(t *testing.T) {
	f := newFixture(t, constants.RoleFrontend, func(int, *http.Request) (int, map[string]any) {
		return ok(http.StatusCreated)
	})
	s := f.syncer(constants.RoleFrontend, config.BookStrategyUpsert, config.TokenModeService)

	payload := outbox.BorrowPayload{ID: 7, UserEmail: "reader@library.test", BookID: 1, ReturnDate: "2026-03-01", DurationDays: 5}
	result, err := s.SyncBorrowCreate(context.Background(), event(t, outbox.KindBorrowCreate, 7, payload))
	require.NoError(t, err)
	assert.Equal(t, "Borrow record 7 successfully created in backend.", result)

	assert.Equal(t, []string{"POST /borrowed-books/7"}, f.peer.calls())
	body := f.peer.body(0)
	assert.Equal(t, "2026-02-28", body["return_date"])
	assert.Equal(t, float64(1), body["book"])
	assert.Equal(t, "reader@library.test", body["user_email"])
}

func TestSyncBorrowCreate_DuplicateIsPermanent(t *testing.T) {
	f := newFixture(t, constants.RoleFrontend, func(int, *http.Request) (int, map[string]any) {
		return fail(http.StatusConflict, "CONFLICT")
	})
	s := f.syncer(constants.RoleFrontend, config.BookStrategyUpsert, config.TokenModeService)

	payload := outbox.BorrowPayload{ID: 7, UserEmail: "reader@library.test", BookID: 1, ReturnDate: "2026-03-01", DurationDays: 5}
	_, err := s.SyncBorrowCreate(context.Background(), event(t, outbox.KindBorrowCreate, 7, payload))
	assert.True(t, outbox.IsPermanent(err))
}

func TestSyncBorrowCreate_MalformedPayload(t *testing.T) {
	f := newFixture(t, constants.RoleFrontend, func(int, *http.Request) (int, map[string]any) {
		return ok(http.StatusCreated)
	})
	s := f.syncer(constants.RoleFrontend, config.BookStrategyUpsert, config.TokenModeService)

	bad := &outbox.Event{ID: 3, Kind: outbox.KindBorrowCreate, Payload: json.RawMessage(`{"id":`)}
	_, err := s.SyncBorrowCreate(context.Background(), bad)
	assert.True(t, outbox.IsPermanent(err))

	payload := outbox.BorrowPayload{ID: 7, ReturnDate: "soon"}
	_, err = s.SyncBorrowCreate(context.Background(), event(t, outbox.KindBorrowCreate, 7, payload))
	assert.True(t, outbox.IsPermanent(err))
	assert.Empty(t, f.peer.calls())
}

func TestSyncBorrowDelete_AbsentCountsAsDelivered(t *testing.T) {
	f := newFixture(t, constants.RoleBackend, func(int, *http.Request) (int, map[string]any) {
		return fail(http.StatusNotFound, "NOT_FOUND")
	})
	s := f.syncer(constants.RoleBackend, config.BookStrategyUpsert, "")

	result, err := s.SyncBorrowDelete(context.Background(), event(t, outbox.KindBorrowDelete, 7, outbox.BorrowRef{ID: 7}))
	require.NoError(t, err)
	assert.Equal(t, "Borrow record 7 was already absent from frontend.", result)
	assert.Equal(t, []string{"DELETE /borrowed-books/7"}, f.peer.calls())
}

// # Users

func TestSyncUser_RequiresCreated(t *testing.T) {
	status := http.StatusCreated
	f := newFixture(t, constants.RoleFrontend, func(int, *http.Request) (int, map[string]any) {
		return ok(status)
	})
	s := f.syncer(constants.RoleFrontend, config.BookStrategyUpsert, config.TokenModeService)
	user := event(t, outbox.KindUserSync, 0, outbox.UserPayload{Email: "reader@library.test", FirstName: "Ada", LastName: "Lovelace"})

	result, err := s.SyncUser(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "User reader@library.test successfully synced with backend.", result)
	assert.Equal(t, "Ada", f.peer.body(0)["first_name"])

	status = http.StatusOK
	_, err = s.SyncUser(context.Background(), user)
	assert.True(t, outbox.IsPermanent(err))
}

// # Registration

func TestRegister_RoutesByRole(t *testing.T) {
	f := newFixture(t, constants.RoleBackend, func(int, *http.Request) (int, map[string]any) {
		return ok(http.StatusOK)
	})
	repo := outbox.NewMemoryRepository()
	cfg := config.SyncConfig{Workers: 1, PollInterval: time.Second, BatchSize: 8, MaxAttempts: 1, RetryBase: time.Millisecond, RetryMax: time.Millisecond}

	backend := outbox.NewDispatcher(repo, cfg, metrics.New(constants.RoleBackend), discard)
	f.syncer(constants.RoleBackend, config.BookStrategyUpsert, "").Register(backend)
	require.NoError(t, backend.Validate())

	// borrow.create belongs to the frontend; the backend has no handler for it.
	log := outbox.NewLog(repo, discard)
	require.NoError(t, log.Append(context.Background(), outbox.KindBorrowCreate, 7, outbox.BorrowRef{ID: 7}))
	_, err := backend.Drain(context.Background())
	require.NoError(t, err)

	events := repo.Events()
	require.Len(t, events, 1)
	assert.Equal(t, outbox.StatusDead, events[0].Status)
	assert.Contains(t, events[0].LastError, "no sync handler registered")
}
