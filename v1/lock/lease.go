package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	syncrafterrors "github.com/daliboradamec82/syncraft/v1/errors"
)

// RunWithLease attempts to acquire the lock and, on success, runs work
// under it while a background loop renews the lease every renewEvery.
// It returns (false, nil) when another holder owns the lock. The lease
// token from acquisition is threaded through every renewal and the
// final release, so a concurrent acquisition of the same key can never
// be renewed or released by this run. The renewal loop stops itself if
// the lease is lost (expired and possibly re-acquired elsewhere); the
// in-flight work is allowed to finish, but the loss is surfaced as
// ErrLeaseLost, joined with the work error when there is one.
// renewEvery must be strictly shorter than ttl so a delayed wake-up
// still lands before expiry.
func RunWithLease(ctx context.Context, l Locker, key string, ttl, renewEvery time.Duration, work func(context.Context) error) (bool, error) {
	if ttl <= 0 || renewEvery <= 0 || renewEvery >= ttl {
		return false, syncrafterrors.ErrInvalidRenewInterval
	}

	token, err := l.TryLock(ctx, key, ttl)
	if err != nil || token == "" {
		return false, err
	}

	var lost atomic.Bool
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(renewEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				held, err := l.Renew(ctx, key, token, ttl)
				if err != nil {
					// transient store error; the next tick retries while
					// the current lease is still counting down
					continue
				}
				if !held {
					lost.Store(true)
					return
				}
			}
		}
	}()

	werr := work(ctx)

	close(stop)
	wg.Wait()
	if rerr := l.Release(ctx, key, token); rerr != nil && werr == nil {
		werr = rerr
	}
	if lost.Load() {
		if werr == nil {
			// bare sentinel so callers can tell "work succeeded, lease
			// lapsed" apart from a failed work unit
			werr = syncrafterrors.ErrLeaseLost
		} else {
			werr = errors.Join(werr, syncrafterrors.ErrLeaseLost)
		}
	}
	return true, werr
}
