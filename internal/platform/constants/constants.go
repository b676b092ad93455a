// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for both services.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Routing: Per-role API prefixes shared with the peer client.
  - Sync: Header names and cache keys used by the sync dispatcher.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "librasync"
	AppVersion = "0.1.0-dev"
)

// # Service Roles

const (
	// RoleBackend is the admin service: authoritative catalog and borrow records.
	RoleBackend = "backend"

	// RoleFrontend is the patron service: mirrored catalog and borrowing.
	RoleFrontend = "frontend"
)

// # Routing

const (
	// BackendAPIPrefix is the mount point of the admin service API.
	BackendAPIPrefix = "/admin-end/api/v1"

	// FrontendAPIPrefix is the mount point of the patron service API.
	FrontendAPIPrefix = "/user-end/api/v1"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests and sync jobs during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"

	// HeaderSessionID carries a session token when the body does not.
	HeaderSessionID = "X-Session-ID"

	// HeaderSyncOrigin names the service whose sync job issued the request.
	HeaderSyncOrigin = "X-Sync-Origin"
)

// # JSON Field Identifiers

const (
	FieldSuccess   = "success"
	FieldMessage   = "message"
	FieldCode      = "code"
	FieldData      = "data"
	FieldErrors    = "errors"
	FieldSessionID = "session_id"
)

// DateLayout formats calendar dates such as borrow and return dates.
const DateLayout = "2006-01-02"

// # Redis Prefixes (Cache Taxonomy)

const (
	// RedisPrefixPeerToken caches the admin token a frontend uses against the backend.
	RedisPrefixPeerToken = "sync:peer_token:"
)
