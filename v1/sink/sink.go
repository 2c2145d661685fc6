package sink

import "context"

// Delta is one flushed counter: add Value to FieldPath of the entity
// identified by EntityID. Field paths may be dot-separated for nested
// fields; the backend interprets them.
type Delta struct {
	EntityID  string
	FieldPath string
	Value     int64
}

// Report summarizes a bulk apply.
type Report struct {
	// Matched counts deltas applied to an existing entity.
	Matched int64
	// Missed counts deltas whose entity was not found. Misses are not
	// errors; the rest of the batch proceeds.
	Missed int64
}

// Sink receives the drained accumulator contents as one bulk write.
type Sink interface {
	// Apply applies every delta independently. An error means the bulk
	// submission itself failed; per-entity misses are reported, not
	// returned as errors.
	Apply(ctx context.Context, deltas []Delta) (Report, error)
}
