// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/librasync/internal/peer"
	"github.com/taibuivan/librasync/internal/platform/config"
	"github.com/taibuivan/librasync/internal/platform/constants"
)

// TokenTTL is how long a peer admin token stays cached. It is shorter than
// the backend's admin session lifetime.
const TokenTTL = 90 * time.Minute

// TokenCache stores the peer admin token between jobs.
type TokenCache interface {
	// Get returns "" when nothing is cached.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache is the production [TokenCache].
type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func (cache *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := cache.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (cache *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return cache.client.Set(ctx, key, value, ttl).Err()
}

func (cache *RedisCache) Delete(ctx context.Context, key string) error {
	return cache.client.Del(ctx, key).Err()
}

// MemoryCache is an in-process [TokenCache] for tests. Entries never expire.
type MemoryCache struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{values: make(map[string]string)}
}

func (cache *MemoryCache) Get(_ context.Context, key string) (string, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.values[key], nil
}

func (cache *MemoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.values[key] = value
	return nil
}

func (cache *MemoryCache) Delete(_ context.Context, key string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.values, key)
	return nil
}

/*
TokenSource provides the admin session a frontend needs for book writes on the
backend.

In service mode it asks POST /service-token. In login mode it posts /login
and, when the account is already logged in, takes the live token out of the
conflict answer's errors.session_id.
*/
type TokenSource struct {
	client   *peer.Client
	cache    TokenCache
	mode     string
	email    string
	password string
	logger   *slog.Logger
}

func NewTokenSource(client *peer.Client, cache TokenCache, cfg config.PeerConfig, mode string, logger *slog.Logger) *TokenSource {
	return &TokenSource{
		client:   client,
		cache:    cache,
		mode:     mode,
		email:    cfg.AdminEmail,
		password: cfg.AdminPassword,
		logger:   logger,
	}
}

func (source *TokenSource) key() string {
	return constants.RedisPrefixPeerToken + strings.ToLower(source.email)
}

// Token returns the cached admin token or fetches a new one.
func (source *TokenSource) Token(ctx context.Context) (string, error) {
	cached, err := source.cache.Get(ctx, source.key())
	if err != nil {
		// A cache outage only costs a round trip.
		source.logger.WarnContext(ctx, "peer_token_cache_unavailable", slog.Any("error", err))
	}
	if cached != "" {
		return cached, nil
	}

	token, err := source.fetch(ctx)
	if err != nil {
		return "", err
	}

	if err := source.cache.Set(ctx, source.key(), token, TokenTTL); err != nil {
		source.logger.WarnContext(ctx, "peer_token_cache_unavailable", slog.Any("error", err))
	}
	source.logger.DebugContext(ctx, "peer_token_fetched", slog.String("mode", source.mode))
	return token, nil
}

// Invalidate drops the cached token after the peer refused it.
func (source *TokenSource) Invalidate(ctx context.Context) {
	if err := source.cache.Delete(ctx, source.key()); err != nil {
		source.logger.WarnContext(ctx, "peer_token_cache_unavailable", slog.Any("error", err))
	}
}

func (source *TokenSource) fetch(ctx context.Context) (string, error) {
	if source.mode == config.TokenModeService {
		return source.client.ServiceToken(ctx, source.email, source.password)
	}

	response, err := source.client.Login(ctx, source.email, source.password)
	if err != nil {
		return "", err
	}

	if response.OK() {
		var token peer.TokenResponse
		if err := response.DecodeData(&token); err == nil && token.SessionID != "" {
			return token.SessionID, nil
		}
	}

	if response.Status == http.StatusBadRequest {
		if live := response.Envelope.Errors[constants.FieldSessionID]; len(live) > 0 && live[0] != "" {
			return live[0], nil
		}
	}

	if err := response.Err(http.MethodPost, "/login"); err != nil {
		return "", fmt.Errorf("admin login failed: %w", err)
	}
	return "", &peer.Error{Kind: peer.KindRejected, Method: http.MethodPost, Path: "/login", Status: response.Status, Body: string(response.Body)}
}
