package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginLimitExceeded
	MetricAuthenticateSuccess
	MetricAuthenticateFailure
	MetricPrincipalInactive
	MetricTokenRenewed
	MetricRenewalWriteFailed
	MetricExpiredCleanup
	MetricRotationSuccess
	MetricRotationFailure
	MetricReuseDetected
	MetricRotationThrottled
	MetricLogout
	MetricLogoutAll
	MetricAuthenticateLatency

	// MetricIDCount is the number of defined metric IDs.
	MetricIDCount
)

const histogramBuckets = 8

// bucketBounds are upper bounds in nanoseconds; the last bucket is +Inf.
var bucketBounds = [histogramBuckets - 1]int64{
	int64(5 * time.Millisecond),
	int64(10 * time.Millisecond),
	int64(25 * time.Millisecond),
	int64(50 * time.Millisecond),
	int64(100 * time.Millisecond),
	int64(250 * time.Millisecond),
	int64(500 * time.Millisecond),
}

// paddedCounter occupies its own cache line to avoid false sharing between
// hot counters.
type paddedCounter struct {
	value uint64
	_     [7]uint64
}

// Config controls metric collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds atomic counters and optional latency histograms. When
// disabled, every operation is a no-op.
type Metrics struct {
	enabled        bool
	latencyEnabled bool
	counters       [MetricIDCount]paddedCounter
	histograms     [MetricIDCount][histogramBuckets]uint64
}

// New creates a [Metrics] instance configured by cfg.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:        cfg.Enabled,
		latencyEnabled: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latencyEnabled
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.histograms[id][bucketIndex(d)], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot is a point-in-time deep copy of all metrics.
type Snapshot struct {
	Counters   [MetricIDCount]uint64
	Histograms [MetricIDCount][histogramBuckets]uint64
}

// Snapshot copies every counter and histogram bucket.
func (m *Metrics) Snapshot() Snapshot {
	var snap Snapshot
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
		for b := 0; b < histogramBuckets; b++ {
			snap.Histograms[id][b] = atomic.LoadUint64(&m.histograms[id][b])
		}
	}
	return snap
}

func bucketIndex(d time.Duration) int {
	n := int64(d)
	for i, bound := range bucketBounds {
		if n <= bound {
			return i
		}
	}
	return histogramBuckets - 1
}
