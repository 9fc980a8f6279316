package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedStore(t *testing.T) (*InMemoryCounterStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewInMemoryCounterStore(time.Hour)
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryCounterStore_Incr(t *testing.T) {
	ctx := context.Background()

	t.Run("counts within the window", func(t *testing.T) {
		store, clock := newClockedStore(t)

		count, ttl, err := store.Incr(ctx, "10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, time.Minute, ttl)

		clock.Advance(20 * time.Second)
		count, ttl, err = store.Incr(ctx, "10.0.0.1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.Equal(t, 40*time.Second, ttl)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store, _ := newClockedStore(t)

		_, _, _ = store.Incr(ctx, "a", time.Minute)
		_, _, _ = store.Incr(ctx, "a", time.Minute)
		count, _, err := store.Incr(ctx, "b", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("restarts after the window expires", func(t *testing.T) {
		store, clock := newClockedStore(t)

		_, _, _ = store.Incr(ctx, "a", time.Minute)
		_, _, _ = store.Incr(ctx, "a", time.Minute)
		clock.Advance(time.Minute)

		count, ttl, err := store.Incr(ctx, "a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
		assert.Equal(t, time.Minute, ttl)
	})
}

func TestInMemoryCounterStore_Cleanup(t *testing.T) {
	store, clock := newClockedStore(t)
	ctx := context.Background()

	_, _, _ = store.Incr(ctx, "short", time.Second)
	_, _, _ = store.Incr(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	clock.Advance(2 * time.Second)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryCounterStore_Concurrent(t *testing.T) {
	store, _ := newClockedStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Incr(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := store.Incr(ctx, "shared", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
}

func TestInMemoryCounterStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryCounterStore(10 * time.Millisecond)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
