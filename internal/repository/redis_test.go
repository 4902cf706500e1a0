package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisRepo(t *testing.T) (*RedisStateRepository, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStateRepository(client), s
}

func TestRedisStateRepository(t *testing.T) {
	repo, s := newMiniredisRepo(t)
	ctx := context.Background()

	t.Run("RateLimit", func(t *testing.T) {
		userID := int64(789)
		limit := 2
		window := time.Minute

		allowed, err := repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		// Third request in the window is rejected.
		allowed, err = repo.CheckRateLimit(ctx, userID, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("RateLimitWindowExpires", func(t *testing.T) {
		userID := int64(790)
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, userID, 1, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, userID, 1, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(2 * time.Second)

		allowed, err = repo.CheckRateLimit(ctx, userID, 1, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("SetAndGetCached", func(t *testing.T) {
		err := repo.SetCached(ctx, "availability:rock:2026-09-10:1", []byte(`{"results":[]}`), time.Minute)
		require.NoError(t, err)

		got, err := repo.GetCached(ctx, "availability:rock:2026-09-10:1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"results":[]}`), got)

		// Keys are namespaced so they never collide with rate limits.
		assert.True(t, s.Exists("cache:availability:rock:2026-09-10:1"))
	})

	t.Run("GetCachedMiss", func(t *testing.T) {
		got, err := repo.GetCached(ctx, "no-such-key")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CacheExpires", func(t *testing.T) {
		err := repo.SetCached(ctx, "short", []byte("x"), time.Second)
		require.NoError(t, err)

		s.FastForward(2 * time.Second)

		got, err := repo.GetCached(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRedisStateRepositoryNilClient(t *testing.T) {
	repo := NewRedisStateRepository(nil)
	ctx := context.Background()

	_, err := repo.CheckRateLimit(ctx, 1, 1, time.Second)
	assert.Error(t, err)

	_, err = repo.GetCached(ctx, "k")
	assert.Error(t, err)

	err = repo.SetCached(ctx, "k", []byte("v"), time.Second)
	assert.Error(t, err)
}
