// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/librasync/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func(ctx context.Context) error

	// CheckCache pings the Redis client.
	CheckCache func(ctx context.Context) error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, "Service is alive.", map[string]string{"status": "ok"})
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (handler *healthHandler) check(ctx context.Context, name string, probe func(ctx context.Context) error) checkResult {
	result := checkResult{Name: name, IsOK: true}
	if err := probe(ctx); err != nil {
		result.IsOK = false
		result.Error = err.Error()
		handler.logger.ErrorContext(ctx, "readiness_check_failed", slog.String("dependency", name), slog.Any("error", err))
	}
	return result
}

// readiness handles GET /ready (Readiness probe).
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	results := make([]checkResult, 0, 2)

	if handler.dependencies.CheckDatabase != nil {
		results = append(results, handler.check(ctx, "postgres", handler.dependencies.CheckDatabase))
	}
	if handler.dependencies.CheckCache != nil {
		results = append(results, handler.check(ctx, "redis", handler.dependencies.CheckCache))
	}

	isSystemReady := true
	for _, result := range results {
		isSystemReady = isSystemReady && result.IsOK
	}

	if !isSystemReady {
		respond.JSON(writer, http.StatusServiceUnavailable, respond.Envelope{
			Success: false,
			Message: "Service is degraded.",
			Data:    map[string]any{"status": "degraded", "checks": results},
		})
		return
	}

	respond.OK(writer, "Service is ready.", map[string]any{"status": "ready", "checks": results})
}
