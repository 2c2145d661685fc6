package presets

import (
	"context"
	"testing"
	"time"

	"github.com/daliboradamec82/syncraft/v1/sink"
)

func TestInMemoryStandaloneFlushCycle(t *testing.T) {
	snk := sink.NewInMemory()
	snk.Seed("u1")

	c, err := NewInMemoryStandalone(snk, "local", time.Hour)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Destroy()
	ctx := context.Background()

	if err := c.Increment(ctx, "u1", "stats.totalCU", 5); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := c.Increment(ctx, "u1", "stats.totalCU", -2); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if v, ok := snk.Value("u1", "stats.totalCU"); !ok || v != 3 {
		t.Fatalf("expected 3, got %d (ok=%v)", v, ok)
	}
}

func TestInMemoryStandalonePeriodicFlush(t *testing.T) {
	snk := sink.NewInMemory()
	snk.Seed("u1")

	c, err := NewInMemoryStandalone(snk, "local", 30*time.Millisecond)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer c.Destroy()

	if err := c.Increment(context.Background(), "u1", "counter", 2); err != nil {
		t.Fatalf("increment: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := snk.Value("u1", "counter"); ok && v == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("periodic flush did not persist the counter")
}
