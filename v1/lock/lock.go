package lock

import (
	"context"
	"time"
)

// Locker is a distributed try-lock with a renewable lease. Each
// successful acquisition is identified by an opaque token; Renew and
// Release act only on the acquisition whose token they are given, so
// concurrent attempts through one Locker cannot touch each other's
// leases.
type Locker interface {
	// TryLock attempts to obtain the lock without waiting. On success
	// it returns the lease token; an empty token with a nil error means
	// another holder currently owns it (the expected outcome under
	// contention, not a failure).
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Renew extends the lease TTL if the lease identified by token is
	// still held. A false return means the lease expired and may have
	// been taken over; the caller must stop treating itself as owner.
	Renew(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Release frees the lock if the lease identified by token is still
	// held. It never deletes a lease owned by someone else.
	Release(ctx context.Context, key, token string) error
}
