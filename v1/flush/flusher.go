package flush

import (
	"context"

	"go.uber.org/zap"

	"github.com/daliboradamec82/syncraft/v1/buffer"
	"github.com/daliboradamec82/syncraft/v1/metrics"
	"github.com/daliboradamec82/syncraft/v1/sink"
	"github.com/daliboradamec82/syncraft/v1/syncbus"
)

// Flusher moves the accumulated counter sums into the sink. FlushOnce
// must only run while holding the group's flush lock; the Scheduler
// takes care of that.
type Flusher struct {
	buf   buffer.Buffer
	sink  sink.Sink
	group string
	bus   syncbus.Bus
	log   *zap.Logger
}

// FlusherOption configures a Flusher.
type FlusherOption func(*Flusher)

// WithFlusherLogger sets the logger used for flush outcomes.
func WithFlusherLogger(log *zap.Logger) FlusherOption {
	return func(f *Flusher) { f.log = log }
}

// WithFlusherBus announces completed flushes as "flush:<group>" events.
func WithFlusherBus(bus syncbus.Bus) FlusherOption {
	return func(f *Flusher) { f.bus = bus }
}

// NewFlusher returns a Flusher draining buf into snk for the given
// instance group.
func NewFlusher(buf buffer.Buffer, snk sink.Sink, group string, opts ...FlusherOption) *Flusher {
	f := &Flusher{buf: buf, sink: snk, group: group, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FlushOnce drains the buffer and applies the result as one bulk write.
// An empty buffer is a no-op. If the sink write fails the drained sums
// are gone (the accepted loss window), so the failure is logged and
// counted, never swallowed.
func (f *Flusher) FlushOnce(ctx context.Context) error {
	entries, err := f.buf.Drain(ctx)
	if err != nil {
		metrics.FlushFailureCounter.Inc()
		f.log.Error("draining accumulator failed", zap.String("group", f.group), zap.Error(err))
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	deltas := make([]sink.Delta, 0, len(entries))
	for k, v := range entries {
		deltas = append(deltas, sink.Delta{EntityID: k.EntityID, FieldPath: k.FieldPath, Value: v})
	}

	rep, err := f.sink.Apply(ctx, deltas)
	if err != nil {
		metrics.FlushFailureCounter.Inc()
		f.log.Error("bulk write failed, drained increments lost",
			zap.String("group", f.group),
			zap.Int("keys", len(deltas)),
			zap.Error(err))
		return err
	}

	metrics.FlushCounter.Inc()
	metrics.FlushedKeys.Observe(float64(len(deltas)))
	if rep.Missed > 0 {
		f.log.Warn("some flushed entities were not found",
			zap.String("group", f.group),
			zap.Int64("missed", rep.Missed))
	}
	f.log.Debug("flushed buffer",
		zap.String("group", f.group),
		zap.Int("keys", len(deltas)),
		zap.Int64("matched", rep.Matched))

	if f.bus != nil {
		_ = f.bus.Publish(ctx, "flush:"+f.group)
	}
	return nil
}
