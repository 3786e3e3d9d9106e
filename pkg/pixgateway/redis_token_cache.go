package pixgateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache shares provider tokens between API replicas
type RedisTokenCache struct {
	rdb    redis.UniversalClient
	prefix string
}

type RedisTokenCacheOption func(*RedisTokenCache)

func WithTokenPrefix(prefix string) RedisTokenCacheOption {
	return func(c *RedisTokenCache) { c.prefix = strings.Trim(prefix, ":") }
}

// NewRedisTokenCache creates a RedisTokenCache over an existing client
func NewRedisTokenCache(rdb redis.UniversalClient, opts ...RedisTokenCacheOption) *RedisTokenCache {
	c := &RedisTokenCache{rdb: rdb, prefix: "rifamania:gwtoken"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisTokenCache) key(k string) string {
	return c.prefix + ":" + k
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, c.key(key), token, ttl).Err()
}

func (c *RedisTokenCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}
