// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for one librasync service.
  - The role in the configuration decides the API prefix and which routes
    of each domain are mounted.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/librasync/internal/account"
	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/circulation"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/metrics"
	"github.com/taibuivan/librasync/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler; it returns 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; it returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Accounts handles registration, login and the frontend user directory.
	Accounts *account.Handler

	// Catalog handles books.
	Catalog *catalog.Handler

	// Circulation handles borrow records.
	Circulation *circulation.Handler
}

// # Router

/*
NewRouter builds the middleware chain and mounts the routes of cfg.Role.

The backend serves /admin-end/api/v1 and the frontend /user-end/api/v1.
*/
func NewRouter(context context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics, h Handlers) chi.Router {
	r := chi.NewRouter()

	// # Middleware Chain
	// SyncOrigin runs before RateLimit so peer sync traffic is never throttled.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.SyncOrigin(cfg.PeerRole()))
	r.Use(m.Instrument)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)
	r.Use(chimw.StripSlashes)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Handle("/metrics", m.Handler())

	// # Application API
	if cfg.IsBackend() {
		r.Route(constants.BackendAPIPrefix, func(api chi.Router) {
			h.Accounts.RegisterAdminRoutes(api)
			h.Catalog.RegisterAdminRoutes(api)
			h.Circulation.RegisterAdminRoutes(api)
		})
	} else {
		r.Route(constants.FrontendAPIPrefix, func(api chi.Router) {
			h.Accounts.RegisterPatronRoutes(api)
			h.Catalog.RegisterPatronRoutes(api)
			h.Circulation.RegisterPatronRoutes(api)
		})
	}

	return r
}

// # Server Initialization

// NewServer constructs the router and the [http.Server] around it.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics, h Handlers) *Server {
	r := NewRouter(context, cfg, log, m, h)

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
