package lock

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/allisson/tokend/internal/errors"
)

// MemoryLock is an in-process GrantLock for single-instance deployments.
// Each held key carries a channel that is closed on release; waiters block
// on that channel instead of spinning.
type MemoryLock struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewMemoryLock creates an in-memory grant lock.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{
		held: make(map[string]chan struct{}),
	}
}

// Acquire implements GrantLock. Waiters are woken when the current holder
// releases; wake order is not guaranteed (no fairness requirement).
func (l *MemoryLock) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	for {
		l.mu.Lock()
		holder, taken := l.held[key]
		if !taken {
			released := make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(released)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-holder:
			// Holder released; race the other waiters for the key.
		case <-timeout.C:
			return nil, apperrors.Wrap(apperrors.ErrTemporarilyUnavailable, "grant lock wait timed out")
		case <-ctx.Done():
			return nil, apperrors.Wrap(apperrors.ErrTemporarilyUnavailable, "grant lock wait cancelled")
		}
	}
}
