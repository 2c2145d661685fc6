// Package core exposes the public syncraft surface: a Counters handle
// that buffers integer increments in a shared store and flushes them to
// a durable sink once per interval, coordinated across any number of
// instances by a distributed lease.
package core
