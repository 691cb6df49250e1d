package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/vadesk/VADesk/internal/pkg/config"
)

// Client is a thin read-model cache over redis. A nil Client is valid and
// disables caching; every method is nil-safe so callers never branch on
// configuration.
type Client struct {
	rdb *redis.Client
}

// Setup connects to the configured redis instance. Returns nil (caching
// disabled) when no cache binding is configured; a failed ping is logged but
// not fatal, the gateway works without its cache.
func Setup(cfg *config.Config) *Client {
	if !cfg.CacheEnabled() {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.CacheHost, cfg.CachePort),
		Password: cfg.CachePassword,
		DB:       0,
	})

	if pong, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Warnf("[Cache] Could not connect to redis: %v", err)
	} else {
		log.Infof("[Cache] Connected to redis: %s", pong)
	}

	return &Client{rdb: rdb}
}

// Redis exposes the underlying client for packages that share the
// connection (counters, limiter storage).
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// Set stores a value with the given expiration.
func (c *Client) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	if c == nil {
		return nil
	}
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value; empty string means miss.
func (c *Client) Get(ctx context.Context, key string) string {
	if c == nil {
		return ""
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return val
}

// Delete removes a key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, key).Err()
}
