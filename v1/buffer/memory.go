package buffer

import (
	"context"
	"sync"
)

// InMemory implements Buffer with a local map. It is meant for tests
// and single-process deployments; nothing outside the process can see
// it, so the "exactly one flush per interval" guarantee degenerates to
// the trivial single-instance case.
type InMemory struct {
	mu      sync.Mutex
	entries map[Key]int64
}

// NewInMemory returns an empty in-memory buffer.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[Key]int64)}
}

// Incr implements Buffer.Incr.
func (b *InMemory) Incr(ctx context.Context, key Key, delta int64) error {
	b.mu.Lock()
	b.entries[key] += delta
	b.mu.Unlock()
	return nil
}

// Drain implements Buffer.Drain.
func (b *InMemory) Drain(ctx context.Context) (map[Key]int64, error) {
	b.mu.Lock()
	out := b.entries
	b.entries = make(map[Key]int64)
	b.mu.Unlock()
	return out, nil
}

// Len implements Buffer.Len.
func (b *InMemory) Len(ctx context.Context) (int64, error) {
	b.mu.Lock()
	n := int64(len(b.entries))
	b.mu.Unlock()
	return n, nil
}
