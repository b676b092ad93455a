// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. An optional '.env'
file is loaded first with 'joho/godotenv'; real environment variables win.

Usage:

	cfg, err := config.Load(constants.RoleBackend)
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Peer, Dispatcher) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/taibuivan/librasync/internal/platform/constants"
	"github.com/taibuivan/librasync/internal/platform/sec"
)

// # Sync Strategies

const (
	// BookStrategyUpsert issues one PUT with create-or-replace semantics.
	BookStrategyUpsert = "upsert"
	// BookStrategyProbe issues a GET probe, then PUT (exists) or POST (new).
	BookStrategyProbe = "probe"

	// TokenModeService asks the peer's get-or-refresh token endpoint.
	TokenModeService = "service"
	// TokenModeLogin logs in and reads the live token out of a conflict response.
	TokenModeLogin = "login"
)

// # Configuration Schema

// Config holds all runtime configuration for one librasync service.
type Config struct {

	// Role is set by the command, not the environment ("backend" or "frontend").
	Role string

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// PasswordCost is the bcrypt work factor for account passwords.
	PasswordCost int `env:"PASSWORD_COST" envDefault:"10"`

	// Peer service
	Peer PeerConfig `envPrefix:"PEER_"`

	// Sync dispatcher
	Sync SyncConfig `envPrefix:"SYNC_"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// PeerConfig locates the other service and the service account used against it.
type PeerConfig struct {
	// BaseURL includes the peer's API prefix, e.g. http://backend:8080/admin-end/api/v1.
	BaseURL string        `env:"BASE_URL,required"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// AdminEmail and AdminPassword authenticate frontend writes against the backend.
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// SyncConfig tunes the outbox dispatcher.
type SyncConfig struct {
	Workers      int           `env:"WORKERS"       envDefault:"4"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"BATCH_SIZE"    envDefault:"32"`

	// MaxAttempts bounds delivery attempts; 1 gives at-most-once delivery.
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	RetryBase   time.Duration `env:"RETRY_BASE"   envDefault:"1s"`
	RetryMax    time.Duration `env:"RETRY_MAX"    envDefault:"1m"`

	BookStrategy string `env:"BOOK_STRATEGY" envDefault:"upsert"`
	TokenMode    string `env:"TOKEN_MODE"    envDefault:"service"`
}

// # Configuration Loading

// Load reads an optional .env file, then parses environment variables into a [Config].
func Load(role string) (*Config, error) {

	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read .env file: %w", err)
	}

	cfg := &Config{Role: role}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.Role {
	case constants.RoleBackend, constants.RoleFrontend:
	default:
		return fmt.Errorf("config: unknown role %q", c.Role)
	}

	switch c.Sync.BookStrategy {
	case BookStrategyUpsert, BookStrategyProbe:
	default:
		return fmt.Errorf("config: SYNC_BOOK_STRATEGY must be %q or %q", BookStrategyUpsert, BookStrategyProbe)
	}

	switch c.Sync.TokenMode {
	case TokenModeService, TokenModeLogin:
	default:
		return fmt.Errorf("config: SYNC_TOKEN_MODE must be %q or %q", TokenModeService, TokenModeLogin)
	}

	if c.PasswordCost != 0 && (c.PasswordCost < sec.MinCost || c.PasswordCost > sec.MaxCost) {
		return fmt.Errorf("config: PASSWORD_COST must be between %d and %d", sec.MinCost, sec.MaxCost)
	}

	if c.Sync.Workers < 1 || c.Sync.BatchSize < 1 || c.Sync.MaxAttempts < 1 {
		return errors.New("config: SYNC_WORKERS, SYNC_BATCH_SIZE and SYNC_MAX_ATTEMPTS must be positive")
	}

	// Frontend book writes against the backend need an admin service account.
	if c.IsFrontend() && (c.Peer.AdminEmail == "" || c.Peer.AdminPassword == "") {
		return errors.New("config: PEER_ADMIN_EMAIL and PEER_ADMIN_PASSWORD are required for the frontend")
	}

	c.Peer.BaseURL = strings.TrimRight(c.Peer.BaseURL, "/")
	return nil
}

// IsBackend reports whether this process runs the admin service.
func (c *Config) IsBackend() bool {
	return c.Role == constants.RoleBackend
}

// IsFrontend reports whether this process runs the patron service.
func (c *Config) IsFrontend() bool {
	return c.Role == constants.RoleFrontend
}

// PeerRole names the service on the other end of the sync link.
func (c *Config) PeerRole() string {
	if c.IsBackend() {
		return constants.RoleFrontend
	}
	return constants.RoleBackend
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins splits EXTRA_ORIGINS into the CORS allow-list.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
