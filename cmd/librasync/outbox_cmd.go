// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/taibuivan/librasync/internal/api"
	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/metrics"
	pgstore "github.com/taibuivan/librasync/internal/platform/postgres"
	redisstore "github.com/taibuivan/librasync/internal/platform/redis"
	"github.com/taibuivan/librasync/internal/syncer"
)

func newOutboxCommand() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay cross-service sync events",
	}
	addRoleFlag(cmd, &role)
	cmd.AddCommand(
		newOutboxDeadCommand(&role),
		newOutboxRequeueCommand(&role),
		newOutboxDrainCommand(&role),
	)
	return cmd
}

// withPool runs fn against the database of role.
func withPool(ctx context.Context, role string, fn func(cfg *config.Config, log *slog.Logger, pool *pgxpool.Pool) error) error {
	cfg, log, err := bootstrap(role)
	if err != nil {
		return err
	}

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, cfg.Role, cfg.Sync.Workers, log)
	if err != nil {
		return failed(log, err, "connect to postgres")
	}
	defer pool.Close()

	return fn(cfg, log, pool)
}

func newOutboxDeadCommand(role *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dead",
		Short: "List dead sync events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), *role, func(cfg *config.Config, log *slog.Logger, pool *pgxpool.Pool) error {
				dispatcher := outbox.NewDispatcher(outbox.NewPostgresRepository(pool), cfg.Sync, metrics.New(cfg.Role), log)
				events, err := dispatcher.DeadLetters(cmd.Context(), limit)
				if err != nil {
					return err
				}

				encoder := json.NewEncoder(cmd.OutOrStdout())
				for _, event := range events {
					if err := encoder.Encode(event); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "maximum number of events to list")
	return cmd
}

func newOutboxRequeueCommand(role *string) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue EVENT_ID",
		Short: "Move a dead sync event back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid event id %q", args[0])
			}

			return withPool(cmd.Context(), *role, func(cfg *config.Config, log *slog.Logger, pool *pgxpool.Pool) error {
				dispatcher := outbox.NewDispatcher(outbox.NewPostgresRepository(pool), cfg.Sync, metrics.New(cfg.Role), log)
				if err := dispatcher.Requeue(cmd.Context(), id); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "event %d requeued\n", id)
				return err
			})
		},
	}
}

func newOutboxDrainCommand(role *string) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Deliver every due sync event once, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), *role, func(cfg *config.Config, log *slog.Logger, pool *pgxpool.Pool) error {
				rdb, err := redisstore.NewClient(cmd.Context(), cfg.RedisURL, log)
				if err != nil {
					return failed(log, err, "connect to redis")
				}
				defer rdb.Close()

				app := api.Wire(cfg, api.PostgresStores(pool), syncer.NewRedisCache(rdb), metrics.New(cfg.Role), log)
				processed, err := app.Dispatcher.Drain(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d events processed\n", processed)
				return err
			})
		},
	}
}
