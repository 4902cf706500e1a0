package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateRepositoryRateLimit(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, 42, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _ = repo.CheckRateLimit(ctx, 42, 2, time.Minute)
	assert.True(t, allowed)

	allowed, _ = repo.CheckRateLimit(ctx, 42, 2, time.Minute)
	assert.False(t, allowed)

	// A different user has their own window.
	allowed, _ = repo.CheckRateLimit(ctx, 7, 2, time.Minute)
	assert.True(t, allowed)
}

func TestMemoryStateRepositoryRateLimitWindowReset(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, 42, 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _ = repo.CheckRateLimit(ctx, 42, 1, 10*time.Millisecond)
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, _ = repo.CheckRateLimit(ctx, 42, 1, 10*time.Millisecond)
	assert.True(t, allowed)
}

func TestMemoryStateRepositoryCache(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, repo.SetCached(ctx, "k", []byte("v"), time.Minute))

		got, err := repo.GetCached(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("Miss", func(t *testing.T) {
		got, err := repo.GetCached(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.SetCached(ctx, "short", []byte("x"), 10*time.Millisecond))
		time.Sleep(20 * time.Millisecond)

		got, err := repo.GetCached(ctx, "short")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
