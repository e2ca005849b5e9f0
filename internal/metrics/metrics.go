package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter slot (and, for latency ids, a histogram).
type MetricID uint16

const (
	MetricRegistrationStarted MetricID = iota
	MetricRegistrationVerified
	MetricRegistrationCompleted
	MetricRegistrationDuplicate
	MetricCodeIssued
	MetricCodeDeliveryFailed
	MetricCodeIssueRateLimited
	MetricCodeVerifySuccess
	MetricCodeVerifyInvalid
	MetricCodeExpired
	MetricCodeAttemptsExhausted
	MetricCodeNoActive
	MetricPasswordResetRequest
	MetricPasswordResetVerified
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginLocked
	MetricTokenRefreshSuccess
	MetricTokenRefreshFailure
	MetricBackendUnavailable
	MetricAuditDropped
	MetricVerifyLatency
	MetricLoginLatency
	MetricIDCount
)

const (
	HistogramBucketCount = 8
	cacheLineSize        = 64
)

type histogram struct {
	buckets [HistogramBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles counters and latency histograms.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics is a fixed array of padded atomic counters plus one histogram per
// latency id. The zero value and nil receiver are both safe no-ops.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy. Histogram buckets are non-cumulative.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

// IsLatency reports whether id carries a histogram.
func IsLatency(id MetricID) bool {
	return id == MetricVerifyLatency || id == MetricLoginLatency
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Non-latency ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsLatency(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if IsLatency(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricVerifyLatency, MetricLoginLatency} {
			buckets := make([]uint64, HistogramBucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

// bucket upper bounds: 5, 10, 25, 50, 100, 250, 500 ms, +Inf
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
