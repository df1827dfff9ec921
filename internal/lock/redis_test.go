package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/tokend/internal/errors"
)

func setupRedisLock(t *testing.T) (*RedisLock, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		assert.NoError(t, client.Close())
	})

	return NewRedisLock(client, time.Minute), server
}

func TestRedisLock_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("AcquireAndRelease", func(t *testing.T) {
		l, server := setupRedisLock(t)

		release, err := l.Acquire(ctx, "k", time.Second)
		require.NoError(t, err)
		assert.True(t, server.Exists("grantlock:k"))

		release()
		assert.False(t, server.Exists("grantlock:k"))
	})

	t.Run("HeldKeyTimesOut", func(t *testing.T) {
		l, _ := setupRedisLock(t)

		release, err := l.Acquire(ctx, "k", time.Second)
		require.NoError(t, err)
		defer release()

		_, err = l.Acquire(ctx, "k", 120*time.Millisecond)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrTemporarilyUnavailable))
	})

	t.Run("WaiterProceedsAfterRelease", func(t *testing.T) {
		l, _ := setupRedisLock(t)

		release, err := l.Acquire(ctx, "k", time.Second)
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			release2, err := l.Acquire(ctx, "k", 5*time.Second)
			assert.NoError(t, err)
			release2()
			close(acquired)
		}()

		time.Sleep(20 * time.Millisecond)
		release()

		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("waiter never acquired the lock after release")
		}
	})

	t.Run("ReleaseOnlyDeletesOwnToken", func(t *testing.T) {
		l, server := setupRedisLock(t)

		release, err := l.Acquire(ctx, "k", time.Second)
		require.NoError(t, err)

		// Simulate TTL expiry plus re-acquisition by another instance.
		server.Del("grantlock:k")
		require.NoError(t, server.Set("grantlock:k", "someone-else"))

		release()
		// The other holder's lock must survive our release.
		assert.True(t, server.Exists("grantlock:k"))
	})

	t.Run("DistinctKeysDoNotBlock", func(t *testing.T) {
		l, _ := setupRedisLock(t)

		release1, err := l.Acquire(ctx, "k1", time.Second)
		require.NoError(t, err)
		defer release1()

		release2, err := l.Acquire(ctx, "k2", 100*time.Millisecond)
		require.NoError(t, err)
		release2()
	})
}
