package goPubtkt

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricTicketAccepted counts authentic tickets that passed every validity rule.
	MetricTicketAccepted MetricID = iota
	// MetricTicketExpired counts authentic tickets past their validuntil.
	MetricTicketExpired
	// MetricTicketIPMismatch counts authentic tickets bound to another client IP.
	MetricTicketIPMismatch
	// MetricTicketMissingTokens counts authentic tickets lacking required tokens.
	MetricTicketMissingTokens
	// MetricTicketMalformed counts tickets the parser rejected.
	MetricTicketMalformed
	// MetricTicketTooLong counts raw tickets over the size limit.
	MetricTicketTooLong
	// MetricTicketBadSignature counts well-formed tickets whose signature did not verify.
	MetricTicketBadSignature
	// MetricCacheHit counts lookups served by the in-process ring.
	MetricCacheHit
	// MetricCacheMiss counts lookups that fell through the in-process ring.
	MetricCacheMiss
	// MetricSharedCacheHit counts lookups served by the shared Redis tier.
	MetricSharedCacheHit
	// MetricSharedCacheError counts shared tier failures that degraded to a miss.
	MetricSharedCacheError
	// MetricThrottleHit counts requests refused by the forgery throttle.
	MetricThrottleHit
	// MetricThrottleError counts throttle backend failures.
	MetricThrottleError
	// MetricAuthenticateLatency is the Authenticate latency histogram.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. Each counter sits on its own cache
// line so hot-path increments from many goroutines do not contend.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter for id. Disabled or nil metrics ignore the call.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricAuthenticateLatency
// has a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthenticateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}

	return s
}

// bucketIndex maps d to the upper bounds 50µs, 100µs, 250µs, 500µs, 1ms,
// 2.5ms, 10ms, +Inf. Cache hits land in the first buckets, signature checks
// and Redis round-trips further right.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 50:
		return 0
	case us <= 100:
		return 1
	case us <= 250:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 2500:
		return 5
	case us <= 10000:
		return 6
	default:
		return 7
	}
}
