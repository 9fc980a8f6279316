package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "ratelimit:"

// RedisCounterStore implements CounterStore on Redis so that every
// instance shares the same windows.
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCounterStoreWithClient wraps an existing client
func NewRedisCounterStoreWithClient(client *redis.Client, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisCounterStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Incr increments the key and reads its TTL in one round trip. The expiry is
// set only when the key has none, so the window starts at the first hit.
func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := s.keyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
		ttl = window
	}

	return incr.Val(), ttl, nil
}

// Ping checks the connection
func (s *RedisCounterStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisCounterStore) Close() error {
	return s.client.Close()
}

var _ CounterStore = (*RedisCounterStore)(nil)
