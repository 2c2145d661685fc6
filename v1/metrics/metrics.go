package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// IncrementCounter tracks the number of buffered increment calls.
	IncrementCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "syncraft_increments_total",
		Help: "Total number of buffered increment operations",
	})
	// FlushCounter tracks the number of successful flushes.
	FlushCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "syncraft_flushes_total",
		Help: "Total number of successful buffer flushes",
	})
	// FlushFailureCounter tracks failed flush attempts.
	FlushFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "syncraft_flush_failures_total",
		Help: "Total number of failed buffer flushes",
	})
	// FlushSkippedCounter tracks ticks skipped because another instance
	// held the flush lock.
	FlushSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "syncraft_flush_skipped_total",
		Help: "Total number of flush ticks skipped due to lock contention",
	})
	// LeaseLostCounter tracks leases lost while a flush was in progress.
	LeaseLostCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "syncraft_lease_lost_total",
		Help: "Total number of flush leases lost mid-flush",
	})
	// FlushedKeys reports how many counter keys each flush drained.
	FlushedKeys = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "syncraft_flushed_keys",
		Help:    "Number of counter keys drained per flush",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers syncraft core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		IncrementCounter,
		FlushCounter,
		FlushFailureCounter,
		FlushSkippedCounter,
		LeaseLostCounter,
		FlushedKeys,
	)
}
