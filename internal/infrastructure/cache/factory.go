package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/coopelec/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CounterStoreFactory creates rate limit counter stores based on configuration
type CounterStoreFactory struct {
	rateLimit   config.RateLimitConfig
	redisConfig config.RedisConfig
	logger      *zap.Logger
}

// CounterStoreFactoryOption is a functional option for configuring the factory
type CounterStoreFactoryOption func(*CounterStoreFactory)

// WithLogger sets the logger for the factory and the stores it creates
func WithLogger(logger *zap.Logger) CounterStoreFactoryOption {
	return func(f *CounterStoreFactory) {
		f.logger = logger
	}
}

// NewCounterStoreFactory creates a new factory
func NewCounterStoreFactory(rl config.RateLimitConfig, redisCfg config.RedisConfig, opts ...CounterStoreFactoryOption) *CounterStoreFactory {
	f := &CounterStoreFactory{
		rateLimit:   rl,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateInMemoryStore creates a process-local store.
// Limits are per instance when several replicas run.
func (f *CounterStoreFactory) CreateInMemoryStore() *InMemoryCounterStore {
	return NewInMemoryCounterStore(f.rateLimit.CleanupInterval)
}

// CreateRedisStore creates a Redis store behind a circuit breaker that falls
// back to an in-memory store. An unreachable Redis at startup is logged, not
// fatal: the breaker keeps probing and switches back once Redis answers.
func (f *CounterStoreFactory) CreateRedisStore(ctx context.Context) *BreakerCounterStore {
	client := redis.NewClient(&redis.Options{
		Addr:         f.redisConfig.Addr(),
		Password:     f.redisConfig.Password,
		DB:           f.redisConfig.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
	primary := NewRedisCounterStoreWithClient(client, defaultKeyPrefix)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := primary.Ping(pingCtx); err != nil {
		f.logger.Warn("Redis unavailable, rate limits count in memory until it recovers",
			zap.String("addr", f.redisConfig.Addr()),
			zap.Error(err),
		)
	} else {
		f.logger.Info("Using Redis rate limit store", zap.String("addr", f.redisConfig.Addr()))
	}

	return NewBreakerCounterStore(primary, f.CreateInMemoryStore(), BreakerConfig{
		Failures: f.rateLimit.BreakerFailures,
		OpenFor:  f.rateLimit.BreakerOpenFor,
	}, f.logger)
}

// CreateStore creates the store named by ratelimit.store
func (f *CounterStoreFactory) CreateStore(ctx context.Context) (CounterStore, error) {
	switch f.rateLimit.Store {
	case "", "memory":
		return f.CreateInMemoryStore(), nil
	case "redis":
		return f.CreateRedisStore(ctx), nil
	default:
		return nil, fmt.Errorf("unknown rate limit store %q", f.rateLimit.Store)
	}
}
