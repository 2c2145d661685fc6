package core

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/daliboradamec82/syncraft/v1/buffer"
	"github.com/daliboradamec82/syncraft/v1/flush"
	"github.com/daliboradamec82/syncraft/v1/lock"
	"github.com/daliboradamec82/syncraft/v1/metrics"
	"github.com/daliboradamec82/syncraft/v1/sink"
	"github.com/daliboradamec82/syncraft/v1/syncbus"
)

// ErrNoBuffer is returned when neither a Redis client nor a custom
// buffer/locker pair is provided.
var ErrNoBuffer = errors.New("syncraft: a redis client or a custom buffer and locker are required")

// Counters buffers high-frequency integer increments and periodically
// consolidates them into one bulk write against the sink. Instances
// constructed with the same group and shared store cooperate: their
// timers run independently, but per interval exactly one of them
// flushes.
type Counters struct {
	buf   buffer.Buffer
	sched *flush.Scheduler
}

// Option configures a Counters instance.
type Option func(*config)

type config struct {
	log        *zap.Logger
	bus        syncbus.Bus
	buf        buffer.Buffer
	locker     lock.Locker
	leaseTTL   time.Duration
	renewEvery time.Duration
}

// WithLogger sets the logger used by the flusher and scheduler.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithBus announces flush and lock events on the given bus.
func WithBus(bus syncbus.Bus) Option {
	return func(c *config) { c.bus = bus }
}

// WithBuffer replaces the Redis-backed buffer, e.g. with an in-memory
// one for tests or single-process deployments.
func WithBuffer(buf buffer.Buffer) Option {
	return func(c *config) { c.buf = buf }
}

// WithLocker replaces the Redis-backed flush locker.
func WithLocker(l lock.Locker) Option {
	return func(c *config) { c.locker = l }
}

// WithLeaseTTL overrides the flush lease duration.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(c *config) { c.leaseTTL = ttl }
}

// WithRenewInterval overrides the lease renewal interval.
func WithRenewInterval(d time.Duration) Option {
	return func(c *config) { c.renewEvery = d }
}

// New creates a Counters handle flushing into snk every interval.
// rdb provides both the increment buffer and the flush lock; it may be
// nil when WithBuffer and WithLocker supply replacements. group names
// the instance group: all instances sharing a group and store flush the
// same accumulator.
func New(snk sink.Sink, rdb *redis.Client, group string, interval time.Duration, opts ...Option) (*Counters, error) {
	cfg := config{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.buf == nil {
		if rdb == nil {
			return nil, ErrNoBuffer
		}
		cfg.buf = buffer.NewRedis(rdb, group)
	}
	if cfg.locker == nil {
		if rdb == nil {
			return nil, ErrNoBuffer
		}
		cfg.locker = lock.NewRedis(rdb, cfg.bus)
	}

	flusherOpts := []flush.FlusherOption{flush.WithFlusherLogger(cfg.log)}
	if cfg.bus != nil {
		flusherOpts = append(flusherOpts, flush.WithFlusherBus(cfg.bus))
	}
	f := flush.NewFlusher(cfg.buf, snk, group, flusherOpts...)

	schedOpts := []flush.SchedulerOption{flush.WithSchedulerLogger(cfg.log)}
	if cfg.leaseTTL > 0 {
		schedOpts = append(schedOpts, flush.WithLeaseTTL(cfg.leaseTTL))
	}
	if cfg.renewEvery > 0 {
		schedOpts = append(schedOpts, flush.WithRenewInterval(cfg.renewEvery))
	}
	sched, err := flush.NewScheduler(f, cfg.locker, group, interval, schedOpts...)
	if err != nil {
		return nil, err
	}
	return &Counters{buf: cfg.buf, sched: sched}, nil
}

// Increment atomically adds delta to the counter identified by entityID
// and fieldPath. delta may be zero or negative. Store errors are
// returned to the caller unchanged; retrying is a caller concern.
func (c *Counters) Increment(ctx context.Context, entityID, fieldPath string, delta int64) error {
	err := c.buf.Incr(ctx, buffer.Key{EntityID: entityID, FieldPath: fieldPath}, delta)
	if err == nil {
		metrics.IncrementCounter.Inc()
	}
	return err
}

// Flush runs one lock-coordinated flush outside the timer schedule.
func (c *Counters) Flush(ctx context.Context) error {
	return c.sched.Flush(ctx)
}

// Destroy stops the flush timer. It is idempotent and does not
// interrupt a flush already in progress.
func (c *Counters) Destroy() {
	c.sched.Destroy()
}
