package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Storage counters
	rowsWritten      atomic.Uint64
	rowWriteFailures atomic.Uint64
	queryFailures    atomic.Uint64

	// Schema upgrades
	migrations        atomic.Uint64
	migrationFailures atomic.Uint64

	// Simulation
	seriesGenerated   atomic.Uint64
	volumesBackfilled atomic.Uint64

	// Rate fetch latency tracking
	fetchLatencySumNs atomic.Int64
	fetchCount        atomic.Uint64
	fetchFallbacks    atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordRowWritten records one persisted observation.
func (m *Metrics) RecordRowWritten() {
	m.rowsWritten.Add(1)
}

// RecordRowFailure records an observation that was skipped on write.
func (m *Metrics) RecordRowFailure() {
	m.rowWriteFailures.Add(1)
}

// RecordQueryFailure records a failed range query.
func (m *Metrics) RecordQueryFailure() {
	m.queryFailures.Add(1)
}

// RecordMigration records a successful schema upgrade.
func (m *Metrics) RecordMigration() {
	m.migrations.Add(1)
}

// RecordMigrationFailure records an upgrade that left the reduced schema in place.
func (m *Metrics) RecordMigrationFailure() {
	m.migrationFailures.Add(1)
}

// RecordSeriesGenerated records one simulated series.
func (m *Metrics) RecordSeriesGenerated() {
	m.seriesGenerated.Add(1)
}

// RecordVolumesBackfilled records points whose missing volume was synthesized.
func (m *Metrics) RecordVolumesBackfilled(n int) {
	if n > 0 {
		m.volumesBackfilled.Add(uint64(n))
	}
}

// RecordFetch records a rate fetch with latency. fallback marks simulated results.
func (m *Metrics) RecordFetch(latencyNs int64, fallback bool) {
	m.fetchCount.Add(1)
	m.fetchLatencySumNs.Add(latencyNs)
	if fallback {
		m.fetchFallbacks.Add(1)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RowsWritten       uint64
	RowWriteFailures  uint64
	QueryFailures     uint64
	Migrations        uint64
	MigrationFailures uint64
	SeriesGenerated   uint64
	VolumesBackfilled uint64
	Fetches           uint64
	FetchFallbacks    uint64
	AvgFetchLatencyNs int64
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.fetchCount.Load()
	if count > 0 {
		avgLatency = m.fetchLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RowsWritten:       m.rowsWritten.Load(),
		RowWriteFailures:  m.rowWriteFailures.Load(),
		QueryFailures:     m.queryFailures.Load(),
		Migrations:        m.migrations.Load(),
		MigrationFailures: m.migrationFailures.Load(),
		SeriesGenerated:   m.seriesGenerated.Load(),
		VolumesBackfilled: m.volumesBackfilled.Load(),
		Fetches:           count,
		FetchFallbacks:    m.fetchFallbacks.Load(),
		AvgFetchLatencyNs: avgLatency,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.rowsWritten.Store(0)
	m.rowWriteFailures.Store(0)
	m.queryFailures.Store(0)
	m.migrations.Store(0)
	m.migrationFailures.Store(0)
	m.seriesGenerated.Store(0)
	m.volumesBackfilled.Store(0)
	m.fetchLatencySumNs.Store(0)
	m.fetchCount.Store(0)
	m.fetchFallbacks.Store(0)
}
