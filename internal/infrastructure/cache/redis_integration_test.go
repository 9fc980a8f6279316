//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisCounterStore_Incr(t *testing.T) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	store := NewRedisCounterStoreWithClient(redis.NewClient(&redis.Options{Addr: endpoint}), "test:")
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Ping(ctx))

	count, ttl, err := store.Incr(ctx, "client", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.InDelta(t, float64(2*time.Second), float64(ttl), float64(100*time.Millisecond))

	count, ttl, err = store.Incr(ctx, "client", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.LessOrEqual(t, ttl, 2*time.Second)

	time.Sleep(2100 * time.Millisecond)
	count, _, err = store.Incr(ctx, "client", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
