package infra

import (
	"sync/atomic"
	"time"
)

// Metrics counts what a bootstrap run pushed to the ledger.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	submissions    atomic.Uint64
	failures       atomic.Uint64
	commands       atomic.Uint64
	ordersPlaced   atomic.Uint64
	objectsCreated atomic.Uint64

	// Gas in MIST (computation + storage - rebate)
	gasUsed atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordSubmission records one executed batch.
func (m *Metrics) RecordSubmission(commands int, created int, gas uint64, latency time.Duration) {
	m.submissions.Add(1)
	m.commands.Add(uint64(commands))
	m.objectsCreated.Add(uint64(created))
	m.gasUsed.Add(gas)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordFailure records a rejected or failed batch.
func (m *Metrics) RecordFailure() {
	m.failures.Add(1)
}

// RecordOrders records order placements that were part of a successful batch.
func (m *Metrics) RecordOrders(n int) {
	m.ordersPlaced.Add(uint64(n))
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Submissions    uint64
	Failures       uint64
	Commands       uint64
	OrdersPlaced   uint64
	ObjectsCreated uint64
	GasUsed        uint64
	AvgLatency     time.Duration
	Timestamp      time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Submissions:    m.submissions.Load(),
		Failures:       m.failures.Load(),
		Commands:       m.commands.Load(),
		OrdersPlaced:   m.ordersPlaced.Load(),
		ObjectsCreated: m.objectsCreated.Load(),
		GasUsed:        m.gasUsed.Load(),
		AvgLatency:     time.Duration(avgLatency),
		Timestamp:      time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.submissions.Store(0)
	m.failures.Store(0)
	m.commands.Store(0)
	m.ordersPlaced.Store(0)
	m.objectsCreated.Store(0)
	m.gasUsed.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
}
