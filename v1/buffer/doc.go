// Package buffer accumulates integer counter increments in a shared
// store until a flush drains them. Each increment is an atomic add on a
// per-group hash keyed by (entity id, field path), so concurrent writers
// in any number of processes never lose an increment to each other. The
// buffer performs no coordination itself: draining is only safe under
// the flush lock (see the lock package).
package buffer
