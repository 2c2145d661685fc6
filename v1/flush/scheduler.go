package flush

import (
	"context"
	"errors"
	"sync"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"go.uber.org/zap"

	syncrafterrors "github.com/daliboradamec82/syncraft/v1/errors"
	"github.com/daliboradamec82/syncraft/v1/lock"
	"github.com/daliboradamec82/syncraft/v1/metrics"
)

// DefaultLockPrefix prefixes the flush lock entry for a group.
const DefaultLockPrefix = "syncraft:lock:"

// Scheduler drives periodic flush attempts. Every instance runs its own
// ticker; the flush lock, not the tickers, guarantees that only one
// attempt per interval actually flushes. Timers across instances need
// no phase alignment.
type Scheduler struct {
	flusher  *Flusher
	locker   lock.Locker
	lockKey  string
	interval time.Duration
	leaseTTL time.Duration
	renew    time.Duration
	log      *zap.Logger
	id       string

	stop    chan struct{}
	destroy sync.Once
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the logger for tick outcomes.
func WithSchedulerLogger(log *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

// WithLeaseTTL overrides the flush lease duration. It should stay
// comfortably longer than the flush interval so a slightly long flush
// does not race its own next tick.
func WithLeaseTTL(ttl time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.leaseTTL = ttl }
}

// WithRenewInterval overrides how often the lease is renewed while a
// flush is running.
func WithRenewInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.renew = d }
}

// WithLockPrefix overrides the flush lock key prefix.
func WithLockPrefix(prefix string) SchedulerOption {
	return func(s *Scheduler) { s.lockKey = prefix }
}

// NewScheduler creates a Scheduler for the given group and starts its
// ticker. interval must be positive.
func NewScheduler(flusher *Flusher, locker lock.Locker, group string, interval time.Duration, opts ...SchedulerOption) (*Scheduler, error) {
	if interval <= 0 {
		return nil, syncrafterrors.ErrInvalidInterval
	}
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		flusher:  flusher,
		locker:   locker,
		lockKey:  DefaultLockPrefix,
		interval: interval,
		log:      zap.NewNop(),
		id:       id,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lockKey += group
	if s.leaseTTL <= 0 {
		s.leaseTTL = 2 * interval
	}
	if s.renew <= 0 {
		s.renew = s.leaseTTL / 5
	}
	if s.renew >= s.leaseTTL {
		return nil, syncrafterrors.ErrInvalidRenewInterval
	}
	go s.run()
	return s, nil
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// tick failures are logged and counted; the ticker keeps
			// its schedule regardless
			_ = s.attempt(context.Background())
		}
	}
}

func (s *Scheduler) attempt(ctx context.Context) error {
	ran, err := lock.RunWithLease(ctx, s.locker, s.lockKey, s.leaseTTL, s.renew, s.flusher.FlushOnce)
	switch {
	case err == nil && !ran:
		metrics.FlushSkippedCounter.Inc()
		s.log.Debug("flush lock held elsewhere, skipping tick",
			zap.String("lock", s.lockKey),
			zap.String("instance", s.id))
		return nil
	case err != nil:
		if errors.Is(err, syncrafterrors.ErrLeaseLost) {
			metrics.LeaseLostCounter.Inc()
			s.log.Warn("flush lease lost while flushing",
				zap.String("lock", s.lockKey),
				zap.String("instance", s.id))
			if err == syncrafterrors.ErrLeaseLost {
				// the flush itself completed; only the lease lapsed
				return nil
			}
		}
		s.log.Error("scheduled flush attempt failed",
			zap.String("lock", s.lockKey),
			zap.String("instance", s.id),
			zap.Error(err))
		return err
	default:
		return nil
	}
}

// Flush performs one lock-coordinated flush outside the timer schedule.
// Like a tick, it silently yields when another instance holds the lock.
func (s *Scheduler) Flush(ctx context.Context) error {
	return s.attempt(ctx)
}

// Destroy stops future ticks. It is safe to call any number of times
// and does not interrupt a flush already in progress; the goroutine
// exits once the current attempt, if any, completes.
func (s *Scheduler) Destroy() {
	s.destroy.Do(func() { close(s.stop) })
}
