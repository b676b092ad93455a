// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/librasync/internal/platform/ctxkey"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Sync Origin

// WithSyncOrigin marks the context as serving a write issued by a peer's sync job.
func WithSyncOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, ctxkey.KeySyncOrigin, origin)
}

// GetSyncOrigin returns the peer service name, or "" for local writes.
func GetSyncOrigin(ctx context.Context) string {
	origin, _ := ctx.Value(ctxkey.KeySyncOrigin).(string)
	return origin
}

// IsPeerWrite reports whether the current write came from the peer service.
func IsPeerWrite(ctx context.Context) bool {
	return GetSyncOrigin(ctx) != ""
}
