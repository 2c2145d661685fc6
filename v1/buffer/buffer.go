package buffer

import (
	"context"
	"fmt"
	"strings"
)

// keySep separates the entity id from the field path inside a serialized
// key. The unit separator keeps opaque ids and dotted field paths
// unambiguous without imposing any character restrictions that matter in
// practice.
const keySep = "\x1f"

// Key identifies one buffered counter: an entity id plus a field path
// (possibly dot-separated for nested fields). Both parts are opaque to
// the buffer; the persistent sink interprets them.
type Key struct {
	EntityID  string
	FieldPath string
}

func (k Key) String() string {
	return k.EntityID + ":" + k.FieldPath
}

func (k Key) encode() string {
	return k.EntityID + keySep + k.FieldPath
}

func decodeKey(s string) (Key, error) {
	entity, field, ok := strings.Cut(s, keySep)
	if !ok {
		return Key{}, fmt.Errorf("malformed counter key %q", s)
	}
	return Key{EntityID: entity, FieldPath: field}, nil
}

// Buffer is the accumulation half of the write-behind pipeline.
type Buffer interface {
	// Incr atomically adds delta to the counter identified by key,
	// creating the entry if absent. Zero and negative deltas are valid.
	// Store errors are returned unchanged; no retries happen here.
	Incr(ctx context.Context, key Key, delta int64) error
	// Drain atomically reads and removes every accumulated counter,
	// returning the per-key sums. Callers must hold the flush lock.
	Drain(ctx context.Context) (map[Key]int64, error)
	// Len reports the number of counters currently buffered.
	Len(ctx context.Context) (int64, error)
}
