package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/teamflow/pkg/cache"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopProvider(t *testing.T) {
	ctx := context.Background()
	p := cache.NoopProvider{}

	require.NoError(t, p.Set(ctx, "k", []byte("v"), time.Minute))

	_, err := p.Get(ctx, "k")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	ok, err := p.SetNX(ctx, "k", []byte("v"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	p := cache.NewMemoryProvider(clock)

	require.NoError(t, p.Set(ctx, "analysis", []byte("v1"), time.Minute))

	value, err := p.Get(ctx, "analysis")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	ok, err := p.SetNX(ctx, "analysis", []byte("v2"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(time.Minute)

	_, err = p.Get(ctx, "analysis")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	ok, err = p.SetNX(ctx, "analysis", []byte("v2"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(24 * time.Hour)

	value, err = p.Get(ctx, "analysis")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, p.Del(ctx, "analysis"))

	_, err = p.Get(ctx, "analysis")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestNewRedisProvider_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisProvider(context.Background(), "://bad", "teamflow:")
	require.Error(t, err)
}

func TestWithPrefix_IsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemoryProvider(clockwork.NewFakeClock())

	finance := cache.WithPrefix(shared, "finance:")
	legal := cache.WithPrefix(shared, "legal:")

	ok, err := finance.SetNX(ctx, "alert:1", []byte("x"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = legal.SetNX(ctx, "alert:1", []byte("x"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = finance.SetNX(ctx, "alert:1", []byte("x"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	value, err := shared.Get(ctx, "finance:alert:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), value)

	require.NoError(t, finance.Close())
	require.NoError(t, finance.Del(ctx, "alert:1"))

	_, err = shared.Get(ctx, "finance:alert:1")
	require.ErrorIs(t, err, cache.ErrCacheMiss)
}
