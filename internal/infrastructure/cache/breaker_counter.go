package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig controls when the primary store is skipped
type BreakerConfig struct {
	// Failures is the number of consecutive errors that opens the breaker.
	Failures uint32
	// OpenFor is how long the breaker stays open before a trial request.
	OpenFor time.Duration
}

type counterResult struct {
	count int64
	ttl   time.Duration
}

// BreakerCounterStore sends counts to primary through a circuit breaker and
// to fallback whenever primary fails or the breaker is open.
type BreakerCounterStore struct {
	primary  CounterStore
	fallback CounterStore
	cb       *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewBreakerCounterStore wraps primary. Close closes both stores.
func NewBreakerCounterStore(primary, fallback CounterStore, cfg BreakerConfig, logger *zap.Logger) *BreakerCounterStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ratelimit-store",
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerCounterStore{
		primary:  primary,
		fallback: fallback,
		cb:       cb,
		logger:   logger,
	}
}

// Incr implements Counter
func (b *BreakerCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		count, ttl, err := b.primary.Incr(ctx, key, window)
		if err != nil {
			return nil, err
		}
		return counterResult{count: count, ttl: ttl}, nil
	})
	if err == nil {
		r := res.(counterResult)
		return r.count, r.ttl, nil
	}

	if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("Rate limit store failed, counting locally", zap.Error(err))
	}
	return b.fallback.Incr(ctx, key, window)
}

// State reports the breaker state
func (b *BreakerCounterStore) State() gobreaker.State {
	return b.cb.State()
}

// Close closes both stores
func (b *BreakerCounterStore) Close() error {
	return errors.Join(b.primary.Close(), b.fallback.Close())
}

var _ CounterStore = (*BreakerCounterStore)(nil)
