// Package lock provides the keyed, waitable lock used to serialize identical
// concurrent token requests. Two byte-identical submissions map to the same
// key and collide; distinct payloads never do.
//
// Acquire returns a release function so the critical section is modeled as a
// scoped acquisition: callers defer the release and it runs on every exit
// path. Waiting is bounded; on timeout the grant is abandoned with
// ErrTemporarilyUnavailable and no side effects.
package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// GrantLock serializes critical sections by key.
type GrantLock interface {
	// Acquire blocks until the lock for key is obtained, the wait window
	// elapses, or ctx is cancelled. On success it returns a release
	// function that is safe to call exactly once from a defer; on timeout
	// or cancellation it returns an error wrapping
	// apperrors.ErrTemporarilyUnavailable.
	Acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error)
}

// Key derives a stable lock key from the request payload parts. The hash
// guarantees identical payloads collide and distinct payloads do not, and it
// keeps credentials out of lock-backend keyspaces and logs.
func Key(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		// Separator prevents ("ab","c") colliding with ("a","bc").
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
