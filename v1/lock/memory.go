package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daliboradamec82/syncraft/v1/syncbus"
)

type memLease struct {
	token   string
	expires time.Time // zero means no expiry
}

func (l memLease) expired(now time.Time) bool {
	return !l.expires.IsZero() && now.After(l.expires)
}

// InMemory implements Locker with process-local state, mirroring the
// token-and-expiry semantics of the Redis locker. Expiry is evaluated
// lazily on access rather than with timers.
type InMemory struct {
	bus syncbus.Bus

	mu     sync.Mutex
	leases map[string]memLease
}

// NewInMemory returns a new in-memory locker.
func NewInMemory(bus syncbus.Bus) *InMemory {
	if bus == nil {
		bus = syncbus.NewInMemoryBus()
	}
	return &InMemory{
		bus:    bus,
		leases: make(map[string]memLease),
	}
}

// TryLock implements Locker.TryLock.
func (l *InMemory) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	now := time.Now()
	l.mu.Lock()
	if cur, ok := l.leases[key]; ok && !cur.expired(now) {
		l.mu.Unlock()
		return "", nil
	}
	token := uuid.NewString()
	lease := memLease{token: token}
	if ttl > 0 {
		lease.expires = now.Add(ttl)
	}
	l.leases[key] = lease
	l.mu.Unlock()
	_ = l.bus.Publish(ctx, "lock:"+key)
	return token, nil
}

// Renew implements Locker.Renew.
func (l *InMemory) Renew(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if token == "" {
		return false, nil
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.leases[key]
	if !ok || cur.token != token || cur.expired(now) {
		return false, nil
	}
	if ttl > 0 {
		cur.expires = now.Add(ttl)
	} else {
		cur.expires = time.Time{}
	}
	l.leases[key] = cur
	return true, nil
}

// Release implements Locker.Release.
func (l *InMemory) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	l.mu.Lock()
	released := false
	if cur, ok := l.leases[key]; ok && cur.token == token {
		delete(l.leases, key)
		released = true
	}
	l.mu.Unlock()
	if released {
		_ = l.bus.Publish(ctx, "unlock:"+key)
	}
	return nil
}
