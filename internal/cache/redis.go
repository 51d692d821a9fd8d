package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitescout/sitescout/internal/search"
)

// RedisConfig controls the redis-backed result cache.
type RedisConfig struct {
	Addr string
	DB   int
	TTL  time.Duration
}

const defaultTTL = 24 * time.Hour

// Redis implements search.ResultCache on a redis instance with per-entry TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects a Redis cache. The connection is verified eagerly so a
// misconfigured address fails at startup, not mid-crawl.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// Get fetches a cached result; a missing key reports search.ErrNotFound.
func (c *Redis) Get(ctx context.Context, url, term string) (search.Result, error) {
	data, err := c.client.Get(ctx, Key(url, term)).Bytes()
	if errors.Is(err, redis.Nil) {
		return search.Result{}, search.ErrNotFound
	}
	if err != nil {
		return search.Result{}, fmt.Errorf("cache get: %w", err)
	}
	var res search.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return search.Result{}, fmt.Errorf("decode cached result: %w", err)
	}
	return res, nil
}

// Put stores the result under the cache TTL.
func (c *Redis) Put(ctx context.Context, url, term string, res search.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := c.client.Set(ctx, Key(url, term), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (c *Redis) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
