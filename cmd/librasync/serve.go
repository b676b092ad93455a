// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/librasync/internal/api"
	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/metrics"
	"github.com/taibuivan/librasync/internal/platform/migration"
	pgstore "github.com/taibuivan/librasync/internal/platform/postgres"
	redisstore "github.com/taibuivan/librasync/internal/platform/redis"
	"github.com/taibuivan/librasync/internal/syncer"
)

func newServeCommand(role string) *cobra.Command {
	short := "Serve the admin API on " + constants.BackendAPIPrefix
	if role == constants.RoleFrontend {
		short = "Serve the patron API on " + constants.FrontendAPIPrefix
	}
	return &cobra.Command{
		Use:   role,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), role)
		},
	}
}

/*
serve runs one service until ctx is cancelled.

# Startup Sequence

 1. Load configuration and build the logger.
 2. Connect to PostgreSQL and Redis.
 3. Run database migrations (idempotent).
 4. Wire services, sync handlers and HTTP handlers.
 5. Run the HTTP server and the sync dispatcher side by side.
 6. On signal, stop both and wait for in-flight work.
*/
func serve(ctx context.Context, role string) error {
	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, log, err := bootstrap(role)
	if err != nil {
		return err
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("peer", cfg.Peer.BaseURL),
		slog.String("book_strategy", cfg.Sync.BookStrategy),
	)

	// Misconfiguration should fail fast instead of hanging.
	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startupCancel()

	// ── 2. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, cfg.Role, cfg.Sync.Workers, log)
	if err != nil {
		return failed(log, err, "connect to postgres")
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 3. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return failed(log, err, "connect to redis")
	}
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return failed(log, err, "run migrations")
	}

	// ── 5. Wiring ─────────────────────────────────────────────────────────
	m := metrics.New(role)
	app := api.Wire(cfg, api.PostgresStores(pool), syncer.NewRedisCache(rdb), m, log)
	if err := app.Dispatcher.Validate(); err != nil {
		return failed(log, err, "wire sync handlers")
	}

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	server := api.NewServer(ctx, cfg, log, m, app.Handlers(liveness, readiness))

	// ── 6. Run ────────────────────────────────────────────────────────────
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server startup error", slog.Any("error", err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		return app.Dispatcher.Run(groupCtx)
	})

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down server", slog.Duration("timeout", constants.ShutdownTimeout))
		return server.Shutdown(constants.ShutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		return err
	}

	log.Info("server stopped cleanly")
	return nil
}
