package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/audiobrief/internal/config"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/store"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 10 * time.Second

// RedisCache is a store.ResultCache backed by Redis.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

var _ store.ResultCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisCacheWithClient(client, logger), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: client,
		logger: logger.With(slog.String("component", "result_cache")),
	}
}

// Get returns the cached result for fingerprint or store.ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*domain.Result, error) {
	raw, err := c.client.Get(ctx, key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", fingerprint, err)
	}

	var result domain.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry is treated as absent; the next completion overwrites it.
		c.logger.WarnContext(ctx, "discarding undecodable cache entry",
			slog.String("fingerprint", fingerprint),
			slog.String("error", err.Error()))
		return nil, store.ErrCacheMiss
	}
	return &result, nil
}

// Set stores result under fingerprint for ttl.
func (c *RedisCache) Set(ctx context.Context, fingerprint string, result domain.Result, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache set %s: ttl must be positive, got %s", fingerprint, ttl)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", fingerprint, err)
	}

	if err := c.client.Set(ctx, key(fingerprint), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", fingerprint, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func key(fingerprint string) string { return "query:" + fingerprint }
