// Package cache provides the redis-backed product catalog cache.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const catalogTTL = 5 * time.Minute

// Cache is the contract the service layer depends on. Implementations are
// best-effort: a miss and a backend failure look the same to the caller.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// RedisCache caches catalog payloads in redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis at the given address.
func NewRedisCache(addr string) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{client: rdb}
}

// Get returns the cached payload for key, or false on a miss or any redis error.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores the payload under key. Failures are ignored; the next read
// falls through to the repository.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte) {
	r.client.Set(ctx, key, value, catalogTTL)
}

// Close releases the redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
