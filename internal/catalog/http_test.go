// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/middleware"
)

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func serve(t *testing.T, router http.Handler, method, path, body string, header http.Header) (int, envelope) {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	for key, values := range header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	var decoded envelope
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&decoded))
	return recorder.Code, decoded
}

func TestAdminRoutes(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)

	router := chi.NewRouter()
	catalog.NewHandler(f.service).RegisterAdminRoutes(router)

	body := `{"session_id":"` + token + `","title":"Dune","author":"Frank Herbert","category":"fiction","publisher":"wiley","available_copies":2}`

	status, response := serve(t, router, http.MethodPut, "/books/1", body, nil)
	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, response.Success)

	var book catalog.Book
	require.NoError(t, json.Unmarshal(response.Data, &book))
	assert.Equal(t, int64(1), book.ID)
	assert.True(t, book.IsAvailable)

	var labels map[string]any
	require.NoError(t, json.Unmarshal(response.Data, &labels))
	assert.Equal(t, "Fiction", labels["category_label"])
	assert.Equal(t, "Wiley", labels["publisher_label"])
	assert.Equal(t, "fiction", labels["category"])

	status, _ = serve(t, router, http.MethodPut, "/books/1", body, nil)
	assert.Equal(t, http.StatusOK, status)

	status, response = serve(t, router, http.MethodGet, "/books/1", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Book successfully fetched.", response.Message)

	status, response = serve(t, router, http.MethodGet, "/books/99", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, response.Success)
	assert.Equal(t, "NOT_FOUND", response.Code)

	// Deletes take the token from the header when the body has none.
	header := http.Header{constants.HeaderSessionID: {token}}
	status, _ = serve(t, router, http.MethodDelete, "/books/1", "", header)
	assert.Equal(t, http.StatusOK, status)

	status, response = serve(t, router, http.MethodPost, "/books/add", `{"title":"Dune"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, response.Errors, "session_id")

	status, response = serve(t, router, http.MethodGet, "/books/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, response.Errors, "id")
}

func TestPatronRoutes_PeerWritesAreMirrored(t *testing.T) {
	f := newPatronFixture(t)

	router := chi.NewRouter()
	router.Use(middleware.SyncOrigin(constants.RoleBackend))
	catalog.NewHandler(f.service).RegisterPatronRoutes(router)

	peer := http.Header{constants.HeaderSyncOrigin: {constants.RoleBackend}}
	body := `{"id":4,"title":"Cosmos","author":"Carl Sagan","category":"science","publisher":"apress","available_copies":1,"is_available":true}`

	status, _ := serve(t, router, http.MethodPost, "/books/add", body, peer)
	assert.Equal(t, http.StatusCreated, status)
	assert.Empty(t, f.events.Events())

	status, response := serve(t, router, http.MethodGet, "/books-filtered-by-category?category=science", "", nil)
	assert.Equal(t, http.StatusOK, status)

	var books []catalog.Book
	require.NoError(t, json.Unmarshal(response.Data, &books))
	require.Len(t, books, 1)
	assert.Equal(t, int64(4), books[0].ID)

	status, response = serve(t, router, http.MethodGet, "/books-filtered-by-publisher", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, response.Errors, "publisher")
}
