package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// releaseScript deletes the lock key only when it still holds our token, so
// a holder whose TTL expired cannot release a lock re-acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a Redis-backed GrantLock for fleet deployments. Acquisition is
// SET NX with a TTL guarding against crashed holders; waiting polls because
// the expected hold time is one grant round-trip.
type RedisLock struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	prefix       string
}

// NewRedisLock creates a Redis-backed grant lock. The ttl bounds how long a
// crashed holder can block other instances; it should comfortably exceed the
// longest expected grant round-trip.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLock{
		client:       client,
		ttl:          ttl,
		pollInterval: 50 * time.Millisecond,
		prefix:       "grantlock",
	}
}

// Acquire implements GrantLock.
func (l *RedisLock) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	redisKey := l.prefix + ":" + key
	token := uuid.NewString()

	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to acquire grant lock")
		}
		if ok {
			return func() {
				// Release must not inherit the request's cancellation:
				// the lock has to go away even when the caller's context
				// is already done.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-ticker.C:
			// Poll again.
		case <-timeout.C:
			return nil, apperrors.Wrap(apperrors.ErrTemporarilyUnavailable, "grant lock wait timed out")
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.ErrTemporarilyUnavailable, "grant lock wait cancelled")
		}
	}
}
