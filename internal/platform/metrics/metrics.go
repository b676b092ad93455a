// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus collectors for one librasync service.

Each process owns a private registry, served on GET /metrics. Collectors:

  - librasync_http_requests_total / _duration_seconds: inbound API traffic.
  - librasync_sync_jobs_total: terminal and retry outcomes per job kind.
  - librasync_peer_requests_duration_seconds: outbound calls to the peer.
  - librasync_sync_outbox_pending: due events seen by the last poll.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/librasync/internal/platform/constants"
)

// Sync job outcomes recorded by the dispatcher.
const (
	OutcomeDelivered = "delivered"
	OutcomeRetry     = "retry"
	OutcomeDead      = "dead"
)

// Metrics groups the collectors registered for one service role.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	syncJobs     *prometheus.CounterVec
	peerDuration *prometheus.HistogramVec
	outboxDue    prometheus.Gauge
}

// New creates a registry labelled with the service role.
func New(role string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": role}

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   constants.AppName,
			Name:        "http_requests_total",
			Help:        "Inbound API requests by route and status.",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   constants.AppName,
			Name:        "http_request_duration_seconds",
			Help:        "Inbound API latency by route.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
		syncJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   constants.AppName,
			Name:        "sync_jobs_total",
			Help:        "Sync job outcomes by event kind.",
			ConstLabels: labels,
		}, []string{"kind", "outcome"}),
		peerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   constants.AppName,
			Name:        "peer_requests_duration_seconds",
			Help:        "Outbound peer call latency by method and status.",
			ConstLabels: labels,
			Buckets:     []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "status"}),
		outboxDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   constants.AppName,
			Name:        "sync_outbox_pending",
			Help:        "Events claimed by the most recent dispatcher poll.",
			ConstLabels: labels,
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.syncJobs, m.peerDuration, m.outboxDue,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SyncJob counts one dispatcher outcome for an event kind.
func (m *Metrics) SyncJob(kind, outcome string) {
	m.syncJobs.WithLabelValues(kind, outcome).Inc()
}

// PeerRequest observes one outbound call. Status 0 means a transport failure.
func (m *Metrics) PeerRequest(method string, status int, elapsed time.Duration) {
	m.peerDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// OutboxDue records how many events the last poll claimed.
func (m *Metrics) OutboxDue(count int) {
	m.outboxDue.Set(float64(count))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (writer *statusWriter) WriteHeader(code int) {
	writer.status = code
	writer.ResponseWriter.WriteHeader(code)
}

// Instrument records request counts and latency keyed by the chi route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(wrapped, request)

		route := "unmatched"
		if routeCtx := chi.RouteContext(request.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.httpRequests.WithLabelValues(request.Method, route, strconv.Itoa(wrapped.status)).Inc()
		m.httpDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	})
}
