// Package sink abstracts the durable store that receives flushed
// counter deltas. A sink applies one bulk batch of independent
// per-entity numeric increments; entities missing from the store are
// skipped and reported, never a batch failure. Backends exist for
// MongoDB (documents with dotted field paths), relational databases via
// GORM, and local memory for tests.
package sink
