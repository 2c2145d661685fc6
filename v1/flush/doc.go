// Package flush drains the shared increment buffer into the persistent
// sink. A Flusher performs one drain-and-apply round; a Scheduler ticks
// on a fixed interval in every instance and races for the flush lock,
// so an arbitrary number of instances sharing a buffer converge to
// exactly one flush per interval. There is one narrow, documented
// window where increments can be lost: a crash between the drain and
// the sink write acknowledgment. The two stores share no transaction,
// so the window can be kept small but not closed.
package flush
