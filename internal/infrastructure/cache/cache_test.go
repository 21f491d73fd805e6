package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/commercesync/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{
	Enabled:     true,
	Host:        "127.0.0.1",
	Port:        1,
	DialTimeout: 100 * time.Millisecond,
}

func TestInMemoryAppliedCache_MarkApplied(t *testing.T) {
	c := NewInMemoryAppliedCache(0)
	defer c.Close()

	ctx := context.Background()

	t.Run("new key is recorded", func(t *testing.T) {
		isNew, err := c.MarkApplied(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("second mark reports existing key", func(t *testing.T) {
		isNew, err := c.MarkApplied(ctx, "k2", time.Hour)
		require.NoError(t, err)
		require.True(t, isNew)

		isNew, err = c.MarkApplied(ctx, "k2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		isNew, err := c.MarkApplied(ctx, "k3", 10*time.Millisecond)
		require.NoError(t, err)
		require.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = c.MarkApplied(ctx, "k3", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		isNew, err := c.MarkApplied(ctx, "k4", 0)
		require.NoError(t, err)
		assert.True(t, isNew)

		applied, err := c.IsApplied(ctx, "k4")
		require.NoError(t, err)
		assert.True(t, applied)
	})
}

func TestInMemoryAppliedCache_IsApplied(t *testing.T) {
	c := NewInMemoryAppliedCache(0)
	defer c.Close()

	ctx := context.Background()

	applied, err := c.IsApplied(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = c.MarkApplied(ctx, "present", time.Hour)
	require.NoError(t, err)
	applied, err = c.IsApplied(ctx, "present")
	require.NoError(t, err)
	assert.True(t, applied)

	_, err = c.MarkApplied(ctx, "short", 5*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	applied, err = c.IsApplied(ctx, "short")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestInMemoryAppliedCache_Sweep(t *testing.T) {
	c := NewInMemoryAppliedCache(time.Hour)
	defer c.Close()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	ctx := context.Background()
	_, _ = c.MarkApplied(ctx, "old", time.Minute)
	_, _ = c.MarkApplied(ctx, "fresh", time.Hour)
	require.Equal(t, 2, c.Len())

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	c.sweep()

	assert.Equal(t, 1, c.Len())
	applied, err := c.IsApplied(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestInMemoryAppliedCache_ConcurrentMark(t *testing.T) {
	c := NewInMemoryAppliedCache(0)
	defer c.Close()

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := c.MarkApplied(context.Background(), "same-key", time.Hour)
			assert.NoError(t, err)
			if isNew {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestInMemoryAppliedCache_CloseIsIdempotent(t *testing.T) {
	c := NewInMemoryAppliedCache(0)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNewRedisAppliedCache_Unreachable(t *testing.T) {
	_, err := NewRedisAppliedCache(context.Background(), RedisOptions{
		Addr:        unreachableRedis.Addr(),
		DialTimeout: unreachableRedis.DialTimeout,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestNewRedisAppliedCacheWithClient_DefaultPrefix(t *testing.T) {
	c := NewRedisAppliedCacheWithClient(nil, "")
	assert.Equal(t, DefaultKeyPrefix, c.keyPrefix)

	c = NewRedisAppliedCacheWithClient(nil, "custom:")
	assert.Equal(t, "custom:", c.keyPrefix)
}

func TestFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("redis disabled uses in-memory", func(t *testing.T) {
		store, err := NewFactory(config.RedisConfig{Enabled: false}).Create(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryAppliedCache{}, store)
	})

	t.Run("unreachable redis falls back with warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		cfg := unreachableRedis
		cfg.AllowFallback = true

		store, err := NewFactory(cfg, WithLogger(zap.New(core))).Create(ctx)
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryAppliedCache{}, store)
		require.Equal(t, 1, logs.FilterMessage("Redis unavailable, falling back to in-memory applied event cache").Len())
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		cfg := unreachableRedis
		cfg.AllowFallback = false

		store, err := NewFactory(cfg).Create(ctx)
		require.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "redis required")
	})
}
