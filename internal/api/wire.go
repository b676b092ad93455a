// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/librasync/internal/account"
	"github.com/taibuivan/librasync/internal/catalog"
	"github.com/taibuivan/librasync/internal/circulation"
	"github.com/taibuivan/librasync/internal/outbox"
	"github.com/taibuivan/librasync/internal/peer"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/metrics"
	"github.com/taibuivan/librasync/internal/platform/postgres"
	"github.com/taibuivan/librasync/internal/session"
	"github.com/taibuivan/librasync/internal/syncer"
)

// Stores bundles the repositories one service runs on.
type Stores struct {
	Tx        postgres.Transactor
	Accounts  account.Repository
	Directory account.DirectoryRepository
	Sessions  session.Repository
	Books     catalog.Repository
	Records   circulation.Repository
	Outbox    outbox.Repository
}

// PostgresStores backs every repository with the pool.
func PostgresStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Tx:        postgres.NewTxManager(pool),
		Accounts:  account.NewPostgresRepository(pool),
		Directory: account.NewPostgresDirectoryRepository(pool),
		Sessions:  session.NewPostgresRepository(pool),
		Books:     catalog.NewPostgresRepository(pool),
		Records:   circulation.NewPostgresRepository(pool),
		Outbox:    outbox.NewPostgresRepository(pool),
	}
}

// MemoryStores backs every repository with process memory. Nothing is rolled
// back when a transaction fails.
func MemoryStores() Stores {
	accounts := account.NewMemoryRepository()
	return Stores{
		Tx:        postgres.Passthrough{},
		Accounts:  accounts,
		Directory: accounts,
		Sessions:  session.NewMemoryRepository(),
		Books:     catalog.NewMemoryRepository(),
		Records:   circulation.NewMemoryRepository(),
		Outbox:    outbox.NewMemoryRepository(),
	}
}

// App is one wired librasync service.
type App struct {
	Accounts    *account.Service
	Sessions    *session.Service
	Catalog     *catalog.Service
	Circulation *circulation.Service
	Dispatcher  *outbox.Dispatcher

	accountHandler     *account.Handler
	catalogHandler     *catalog.Handler
	circulationHandler *circulation.Handler
}

/*
Wire builds the services, sync handlers and HTTP handlers for cfg.Role.

  - backend: admin sessions guard catalog writes; deletes and returns are
    announced to the frontend; the frontend user directory is kept.
  - frontend: patron sessions guard borrowing; registrations and borrows are
    announced to the backend, using an admin token kept in cache.
*/
func Wire(cfg *config.Config, stores Stores, cache syncer.TokenCache, m *metrics.Metrics, logger *slog.Logger) *App {
	dispatcher := outbox.NewDispatcher(stores.Outbox, cfg.Sync, m, logger)

	log := outbox.NewLog(stores.Outbox, logger)
	log.OnAppend(dispatcher.Wake)

	client := peer.NewClient(cfg.Peer, cfg.Role, m)

	app := &App{Dispatcher: dispatcher}

	if cfg.IsBackend() {
		app.Sessions = session.NewService(stores.Sessions, session.AdminPolicy, logger)
		app.Accounts = account.NewService(stores.Accounts, app.Sessions, stores.Tx, log, logger,
			account.WithPasswordCost(cfg.PasswordCost),
		)
		app.Catalog = catalog.NewService(stores.Books, stores.Tx, log, logger,
			catalog.RequireSession(app.Sessions),
			catalog.PropagateDeletes(),
		)

		directory := account.NewDirectory(stores.Directory, logger)
		app.Circulation = circulation.NewService(stores.Records, app.Catalog, stores.Tx, log, logger,
			circulation.AnnounceReturns(),
			circulation.WithDirectory(directory),
		)

		app.accountHandler = account.NewHandler(app.Accounts, directory)
		syncer.New(cfg.Role, client, app.Catalog, nil, cfg.Sync.BookStrategy, logger).Register(dispatcher)
	} else {
		app.Sessions = session.NewService(stores.Sessions, session.PatronPolicy, logger)
		app.Accounts = account.NewService(stores.Accounts, app.Sessions, stores.Tx, log, logger,
			account.AnnounceRegistrations(),
			account.WithPasswordCost(cfg.PasswordCost),
		)
		app.Catalog = catalog.NewService(stores.Books, stores.Tx, log, logger)
		app.Circulation = circulation.NewService(stores.Records, app.Catalog, stores.Tx, log, logger,
			circulation.WithPatrons(app.Sessions, app.Accounts),
		)

		app.accountHandler = account.NewHandler(app.Accounts, nil)
		tokens := syncer.NewTokenSource(client, cache, cfg.Peer, cfg.Sync.TokenMode, logger)
		syncer.New(cfg.Role, client, app.Catalog, tokens, cfg.Sync.BookStrategy, logger).Register(dispatcher)
	}

	app.catalogHandler = catalog.NewHandler(app.Catalog)
	app.circulationHandler = circulation.NewHandler(app.Circulation)
	return app
}

// Handlers returns the domain handlers plus the given health probes.
func (app *App) Handlers(liveness, readiness http.HandlerFunc) Handlers {
	return Handlers{
		Liveness:    liveness,
		Readiness:   readiness,
		Accounts:    app.accountHandler,
		Catalog:     app.catalogHandler,
		Circulation: app.circulationHandler,
	}
}
