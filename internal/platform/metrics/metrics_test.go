// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/metrics"
)

func TestMetrics_HandlerExposesCollectors(t *testing.T) {
	m := metrics.New(constants.RoleBackend)
	m.SyncJob("book.upsert", metrics.OutcomeDelivered)
	m.SyncJob("book.upsert", metrics.OutcomeRetry)
	m.PeerRequest(http.MethodPut, http.StatusOK, 40*time.Millisecond)
	m.OutboxDue(3)

	router := chi.NewRouter()
	router.Use(m.Instrument)
	router.Get("/books/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books/7", nil))

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	body := recorder.Body.String()
	assert.Contains(t, body, `librasync_sync_jobs_total{kind="book.upsert",outcome="delivered",service="backend"} 1`)
	assert.Contains(t, body, `librasync_sync_outbox_pending{service="backend"} 3`)
	assert.Contains(t, body, `librasync_http_requests_total{method="GET",route="/books/{id}",service="backend",status="404"} 1`)
	assert.Contains(t, body, "librasync_peer_requests_duration_seconds_bucket")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "librasync_sync_jobs_total" {
			assert.Len(t, family.GetMetric(), 2)
		}
	}
}
