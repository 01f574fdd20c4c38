// internal/common/database/redis.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/common/config"
)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	return &RedisClient{Client: rdb}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// CacheWarn is called for cache failures that do not fail the read.
type CacheWarn func(op, key string, err error)

// ReadThrough returns the JSON value cached at key, or calls load and caches
// its result for ttl. Cache errors fall through to load and are reported to
// warn when it is non-nil. hit reports whether the value came from cache.
func ReadThrough[T any](
	ctx context.Context,
	rdb *redis.Client,
	key string,
	ttl time.Duration,
	warn CacheWarn,
	load func(context.Context) (T, error),
) (value T, hit bool, err error) {
	if rdb != nil {
		cached, getErr := rdb.Get(ctx, key).Result()
		switch {
		case getErr == nil:
			if jsonErr := json.Unmarshal([]byte(cached), &value); jsonErr == nil {
				return value, true, nil
			} else if warn != nil {
				warn("decode", key, jsonErr)
			}
		case !errors.Is(getErr, redis.Nil) && warn != nil:
			warn("get", key, getErr)
		}
	}

	value, err = load(ctx)
	if err != nil {
		return value, false, err
	}

	if rdb != nil {
		data, jsonErr := json.Marshal(value)
		if jsonErr == nil {
			if setErr := rdb.Set(ctx, key, data, ttl).Err(); setErr != nil && warn != nil {
				warn("set", key, setErr)
			}
		}
	}
	return value, false, nil
}
