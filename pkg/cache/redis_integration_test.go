package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisProvider_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	defer func() {
		_ = container.Terminate(ctx)
	}()

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	p, err := cache.NewRedisProvider(ctx, fmt.Sprintf("redis://%s/0", endpoint), "teamflow:test:")
	require.NoError(t, err)

	defer p.Close()

	_, err = p.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	require.NoError(t, p.Set(ctx, "key", []byte("value"), time.Minute))

	value, err := p.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	ok, err := p.SetNX(ctx, "key", []byte("other"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Del(ctx, "key"))

	_, err = p.Get(ctx, "key")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
}
