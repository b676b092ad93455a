// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command librasync runs either library service and its maintenance tasks.
//
// # Commands
//
//	librasync backend            serve the admin API and sync to the frontend
//	librasync frontend           serve the patron API and sync to the backend
//	librasync migrate up|down    apply or roll back schema migrations
//	librasync outbox dead        list sync events that gave up
//	librasync outbox requeue ID  retry one dead event
//	librasync outbox drain       deliver every due event once and exit
//
// Configuration comes from the environment (see internal/platform/config).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Library backend and frontend services kept in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newServeCommand(constants.RoleBackend),
		newServeCommand(constants.RoleFrontend),
		newMigrateCommand(),
		newOutboxCommand(),
	)
	return cmd
}

// newLogger builds the JSON logger every command writes to stdout.
func newLogger(role string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With(
		slog.String("app", constants.AppName),
		slog.String("service", role),
	)
	slog.SetDefault(log)
	return log
}

// bootstrap loads the configuration of role and the logger it asks for.
func bootstrap(role string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(role)
	if err != nil {
		newLogger(role, false).Error("startup_failure", slog.String("context", "load configuration"), slog.Any("error", err))
		return nil, nil, err
	}

	log := newLogger(role, cfg.Debug)
	log.Debug("debug_logging_enabled")
	return cfg, log, nil
}

// addRoleFlag registers --role on maintenance commands.
func addRoleFlag(cmd *cobra.Command, role *string) {
	cmd.PersistentFlags().StringVar(role, "role", constants.RoleBackend,
		fmt.Sprintf("service whose database to use (%s|%s)", constants.RoleBackend, constants.RoleFrontend))
}

// failed logs err against the startup step that produced it.
func failed(log *slog.Logger, err error, step string) error {
	log.Error("startup_failure", slog.String("context", step), slog.Any("error", err))
	return fmt.Errorf("%s: %w", step, err)
}
