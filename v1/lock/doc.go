// Package lock provides the expiry-based distributed lease that
// serializes buffer flushes across instances. A lock is a single store
// entry holding a random token with a TTL: acquisition is a conditional
// set, renewal and release are token-checked compare-and-swap
// operations, so a holder whose lease expired can never clobber a later
// holder's lease. RunWithLease combines acquisition, a background
// renewal loop and conditional release around a unit of work.
package lock
