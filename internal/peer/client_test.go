// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package peer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/librasync/internal/peer"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/ctxutil"
	"github.com/taibuivan/librasync/internal/platform/metrics"
)

func newClient(t *testing.T, handler http.HandlerFunc) *peer.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.PeerConfig{BaseURL: server.URL + constants.FrontendAPIPrefix, Timeout: time.Second}
	return peer.NewClient(cfg, constants.RoleBackend, metrics.New(constants.RoleBackend))
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

/*
TestDo_SendsSyncHeaders checks path joining and the headers every call carries.
*/
func TestDo_SendsSyncHeaders(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, constants.FrontendAPIPrefix+"/books/1", r.URL.Path)
		assert.Equal(t, constants.RoleBackend, r.Header.Get(constants.HeaderSyncOrigin))
		assert.Equal(t, "evt-7", r.Header.Get(constants.HeaderXRequestID))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body peer.BookRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(1), body.ID)
		assert.Empty(t, body.SessionID)

		writeEnvelope(w, http.StatusCreated, map[string]any{"success": true, "message": "book successfully added."})
	})

	ctx := ctxutil.WithRequestID(context.Background(), "evt-7")
	created, err := client.UpsertBook(ctx, 1, peer.BookRequest{Title: "Dune", AvailableCopies: 2, IsAvailable: true})
	require.NoError(t, err)
	assert.True(t, created)
}

/*
TestErrorClassification maps statuses onto PeerUnavailable and PeerRejected.
*/
func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server_error", http.StatusInternalServerError, true},
		{"bad_gateway", http.StatusBadGateway, true},
		{"timeout", http.StatusRequestTimeout, true},
		{"throttled", http.StatusTooManyRequests, true},
		{"bad_request", http.StatusBadRequest, false},
		{"not_found", http.StatusNotFound, false},
		{"conflict", http.StatusConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, map[string]any{"success": false, "message": "failed."})
			})

			err := client.DeleteBorrowRecord(context.Background(), 3)
			require.Error(t, err)

			var peerError *peer.Error
			require.ErrorAs(t, err, &peerError)
			assert.Equal(t, tt.status, peerError.Status)
			assert.Equal(t, tt.transient, peer.IsTransient(err))
		})
	}
}

/*
TestTransportFailure is transient.
*/
func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := peer.NewClient(config.PeerConfig{BaseURL: server.URL, Timeout: time.Second}, constants.RoleFrontend, metrics.New(constants.RoleFrontend))

	err := client.DeleteBook(context.Background(), 1, "")
	require.Error(t, err)
	assert.True(t, peer.IsTransient(err))

	var peerError *peer.Error
	require.ErrorAs(t, err, &peerError)
	assert.Equal(t, peer.KindUnavailable, peerError.Kind)
	assert.Zero(t, peerError.Status)
}

/*
TestProbeBook treats any non-transient non-2xx answer as missing.
*/
func TestProbeBook(t *testing.T) {
	tests := []struct {
		status int
		found  bool
		err    bool
	}{
		{http.StatusOK, true, false},
		{http.StatusNotFound, false, false},
		{http.StatusBadRequest, false, false},
		{http.StatusServiceUnavailable, false, true},
	}

	for _, tt := range tests {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			writeEnvelope(w, tt.status, map[string]any{"success": tt.status == http.StatusOK})
		})

		found, err := client.ProbeBook(context.Background(), 5)
		assert.Equal(t, tt.found, found, tt.status)
		assert.Equal(t, tt.err, err != nil, tt.status)
	}
}

/*
TestSessionRejected recognises an expired admin token.
*/
func TestSessionRejected(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "code": "SESSION_EXPIRED"})
	})

	err := client.EditBook(context.Background(), 1, peer.BookRequest{SessionID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301"})
	require.Error(t, err)
	assert.True(t, peer.IsSessionRejected(err))
	assert.False(t, peer.IsTransient(err))
}

/*
TestLogin_ReturnsRawConflict leaves 400 interpretation to the caller.
*/
func TestLogin_ReturnsRawConflict(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  map[string][]string{"session_id": {"live-token"}},
		})
	})

	response, err := client.Login(context.Background(), "sync@library.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.Status)
	assert.Equal(t, []string{"live-token"}, response.Envelope.Errors["session_id"])
}

/*
TestServiceTokenAndSyncUser cover the remaining typed calls.
*/
func TestServiceTokenAndSyncUser(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case constants.FrontendAPIPrefix + "/service-token":
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"session_id": "tok-1"}})
		case constants.FrontendAPIPrefix + "/front-end/users":
			// A 200 is not the documented success for user sync.
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true})
		}
	})

	token, err := client.ServiceToken(context.Background(), "sync@library.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	err = client.SyncUser(context.Background(), peer.UserRequest{Email: "reader@library.test"})
	require.Error(t, err)
	assert.False(t, peer.IsTransient(err))
}
