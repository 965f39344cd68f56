//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestCache(t *testing.T) *RueidisCache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.Run(ctx, "valkey/valkey:8-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cache, err := NewValkeyCache(models.ValkeyCacheConfiguration{Hosts: []string{endpoint}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestRueidisCache(t *testing.T) {
	cache := newTestCache(t)

	t.Run("should accept a TOTP code only once per user", func(t *testing.T) {
		first, err := cache.MarkTOTPCodeUsed("7", "123456")
		require.NoError(t, err)
		second, err := cache.MarkTOTPCodeUsed("7", "123456")
		require.NoError(t, err)
		other, err := cache.MarkTOTPCodeUsed("8", "123456")
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)
		assert.True(t, other)
	})

	t.Run("should count and reset failed attempts", func(t *testing.T) {
		for range configuration.MFAMaxAttempts {
			require.NoError(t, cache.IncrementMFAAttempts("9"))
		}
		attempts, err := cache.GetMFAAttempts("9")
		require.NoError(t, err)
		assert.Equal(t, configuration.MFAMaxAttempts, attempts)

		require.NoError(t, cache.ResetMFAAttempts("9"))
		attempts, err = cache.GetMFAAttempts("9")
		require.NoError(t, err)
		assert.Zero(t, attempts)
	})

	t.Run("should report revoked sessions", func(t *testing.T) {
		require.NoError(t, cache.RevokeSession("jti-1", time.Minute))

		revoked, err := cache.IsSessionRevoked("jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = cache.IsSessionRevoked("jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("should hand the worker lock to one instance", func(t *testing.T) {
		acquired, err := cache.TryAcquireLock("lock:test", "a", 10)
		require.NoError(t, err)
		assert.True(t, acquired)

		acquired, err = cache.TryAcquireLock("lock:test", "b", 10)
		require.NoError(t, err)
		assert.False(t, acquired)

		refreshed, err := cache.RefreshLock("lock:test", "b", 10)
		require.NoError(t, err)
		assert.False(t, refreshed)

		refreshed, err = cache.RefreshLock("lock:test", "a", 10)
		require.NoError(t, err)
		assert.True(t, refreshed)
	})

	t.Run("should return a retry delay past the budget", func(t *testing.T) {
		for range 3 {
			retryAfter, err := cache.GetRateLimit("10.0.0.1", 3)
			require.NoError(t, err)
			assert.Zero(t, retryAfter)
		}

		retryAfter, err := cache.GetRateLimit("10.0.0.1", 3)
		require.NoError(t, err)
		assert.Positive(t, retryAfter)
	})
}
