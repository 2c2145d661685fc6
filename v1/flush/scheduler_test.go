package flush

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/daliboradamec82/syncraft/v1/buffer"
	syncrafterrors "github.com/daliboradamec82/syncraft/v1/errors"
	"github.com/daliboradamec82/syncraft/v1/lock"
	"github.com/daliboradamec82/syncraft/v1/sink"
)

func newSharedRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client
}

// newInstance wires one "process": its own buffer handle, locker and
// scheduler, all sharing the same Redis and sink.
func newInstance(t *testing.T, client *redis.Client, snk sink.Sink, interval time.Duration, opts ...SchedulerOption) (*buffer.Redis, *Scheduler) {
	t.Helper()
	buf := buffer.NewRedis(client, "test")
	f := NewFlusher(buf, snk, "test")
	s, err := NewScheduler(f, lock.NewRedis(client, nil), "test", interval, opts...)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	t.Cleanup(s.Destroy)
	return buf, s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSchedulerFlushesPeriodically(t *testing.T) {
	client := newSharedRedis(t)
	snk := sink.NewInMemory()
	snk.Seed("u1")
	buf, _ := newInstance(t, client, snk, 50*time.Millisecond)
	ctx := context.Background()

	_ = buf.Incr(ctx, buffer.Key{EntityID: "u1", FieldPath: "stats.totalCU"}, 5)
	_ = buf.Incr(ctx, buffer.Key{EntityID: "u1", FieldPath: "stats.totalCU"}, -2)

	// nothing persisted before a tick fires
	if v, ok := snk.Value("u1", "stats.totalCU"); ok {
		t.Fatalf("value persisted before flush tick: %d", v)
	}

	waitFor(t, 2*time.Second, func() bool {
		v, ok := snk.Value("u1", "stats.totalCU")
		return ok && v == 3
	}, "flush did not persist the accumulated sum")
}

func TestTwoSchedulersConvergeToOneFlush(t *testing.T) {
	client := newSharedRedis(t)
	snk := sink.NewInMemory()
	snk.Seed("u1")

	buf1, _ := newInstance(t, client, snk, 150*time.Millisecond)
	buf2, _ := newInstance(t, client, snk, 150*time.Millisecond)
	ctx := context.Background()

	_ = buf1.Incr(ctx, buffer.Key{EntityID: "u1", FieldPath: "counter"}, 1)
	_ = buf2.Incr(ctx, buffer.Key{EntityID: "u1", FieldPath: "counter"}, 1)

	waitFor(t, 2*time.Second, func() bool {
		v, _ := snk.Value("u1", "counter")
		return v == 2
	}, "both increments must land")

	// later ticks see an empty buffer and must not write again
	time.Sleep(400 * time.Millisecond)
	if v, _ := snk.Value("u1", "counter"); v != 2 {
		t.Fatalf("increment applied twice: %d", v)
	}
	if snk.Applies() != 1 {
		t.Fatalf("expected exactly one bulk write, got %d", snk.Applies())
	}
}

type slowSink struct {
	inner *sink.InMemory
	delay time.Duration
}

func (s *slowSink) Apply(ctx context.Context, deltas []sink.Delta) (sink.Report, error) {
	time.Sleep(s.delay)
	return s.inner.Apply(ctx, deltas)
}

func TestSlowFlushBlocksCompetingTicks(t *testing.T) {
	client := newSharedRedis(t)
	inner := sink.NewInMemory()
	inner.Seed("u1")
	snk := &slowSink{inner: inner, delay: 300 * time.Millisecond}

	// flush takes 3 intervals but stays well inside the lease
	opts := []SchedulerOption{WithLeaseTTL(2 * time.Second), WithRenewInterval(100 * time.Millisecond)}
	buf1, _ := newInstance(t, client, snk, 100*time.Millisecond, opts...)
	_, _ = newInstance(t, client, snk, 100*time.Millisecond, opts...)
	ctx := context.Background()

	_ = buf1.Incr(ctx, buffer.Key{EntityID: "u1", FieldPath: "counter"}, 1)

	waitFor(t, 3*time.Second, func() bool {
		v, _ := inner.Value("u1", "counter")
		return v == 1
	}, "slow flush did not complete")

	time.Sleep(300 * time.Millisecond)
	if inner.Applies() != 1 {
		t.Fatalf("competing tick wrote during a held lease: %d applies", inner.Applies())
	}
}

// gatedSink holds its first Apply open until released, exposing the
// window between a drain and the bulk write.
type gatedSink struct {
	inner   *sink.InMemory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSink) Apply(ctx context.Context, deltas []sink.Delta) (sink.Report, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.inner.Apply(ctx, deltas)
}

func TestIncrementDuringFlushLandsInNextFlush(t *testing.T) {
	client := newSharedRedis(t)
	inner := sink.NewInMemory()
	inner.Seed("u1")
	snk := &gatedSink{inner: inner, entered: make(chan struct{}), release: make(chan struct{})}
	buf, s := newInstance(t, client, snk, time.Hour) // timer effectively off
	ctx := context.Background()

	k := buffer.Key{EntityID: "u1", FieldPath: "counter"}
	_ = buf.Incr(ctx, k, 1)

	done := make(chan error, 1)
	go func() { done <- s.Flush(ctx) }()

	<-snk.entered
	// the flush already drained; this increment belongs to the next period
	_ = buf.Incr(ctx, k, 1)
	close(snk.release)
	if err := <-done; err != nil {
		t.Fatalf("flush: %v", err)
	}

	if v, _ := inner.Value("u1", "counter"); v != 1 {
		t.Fatalf("first flush must carry only the pre-drain increment, got %d", v)
	}
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if v, _ := inner.Value("u1", "counter"); v != 2 {
		t.Fatalf("late increment must land exactly once in the next flush, got %d", v)
	}
	if inner.Applies() != 2 {
		t.Fatalf("expected two bulk writes, got %d", inner.Applies())
	}
}

// lapsingLocker grants every acquisition but reports the lease as lost
// on the first renewal check.
type lapsingLocker struct{}

func (lapsingLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	return "lease", nil
}

func (lapsingLocker) Renew(context.Context, string, string, time.Duration) (bool, error) {
	return false, nil
}

func (lapsingLocker) Release(context.Context, string, string) error { return nil }

func TestManualFlushSucceedsWhenLeaseLapses(t *testing.T) {
	client := newSharedRedis(t)
	inner := sink.NewInMemory()
	inner.Seed("u1")
	snk := &slowSink{inner: inner, delay: 60 * time.Millisecond}
	buf := buffer.NewRedis(client, "test")
	f := NewFlusher(buf, snk, "test")
	s, err := NewScheduler(f, lapsingLocker{}, "test", time.Hour,
		WithLeaseTTL(100*time.Millisecond), WithRenewInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	t.Cleanup(s.Destroy)
	ctx := context.Background()

	_ = buf.Incr(ctx, buffer.Key{EntityID: "u1", FieldPath: "counter"}, 2)
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("the write was applied, a lapsed lease must not fail the flush: %v", err)
	}
	if v, _ := inner.Value("u1", "counter"); v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestSchedulerDestroyStopsTicksAndIsIdempotent(t *testing.T) {
	client := newSharedRedis(t)
	snk := sink.NewInMemory()
	snk.Seed("u1")
	buf, s := newInstance(t, client, snk, 50*time.Millisecond)

	s.Destroy()
	s.Destroy()

	_ = buf.Incr(context.Background(), buffer.Key{EntityID: "u1", FieldPath: "counter"}, 1)
	time.Sleep(250 * time.Millisecond)
	if snk.Applies() != 0 {
		t.Fatal("ticks continued after Destroy")
	}
}

func TestSchedulerManualFlush(t *testing.T) {
	client := newSharedRedis(t)
	snk := sink.NewInMemory()
	snk.Seed("u1")
	buf, s := newInstance(t, client, snk, time.Hour) // timer effectively off
	ctx := context.Background()

	_ = buf.Incr(ctx, buffer.Key{EntityID: "u1", FieldPath: "counter"}, 4)
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("manual flush: %v", err)
	}
	if v, _ := snk.Value("u1", "counter"); v != 4 {
		t.Fatalf("expected 4, got %d", v)
	}
}

func TestNewSchedulerValidatesInterval(t *testing.T) {
	client := newSharedRedis(t)
	f := NewFlusher(buffer.NewRedis(client, "test"), sink.NewInMemory(), "test")

	_, err := NewScheduler(f, lock.NewRedis(client, nil), "test", 0)
	if !errors.Is(err, syncrafterrors.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	_, err = NewScheduler(f, lock.NewRedis(client, nil), "test", -time.Second)
	if !errors.Is(err, syncrafterrors.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}
