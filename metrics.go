package goLMS

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that reached the authenticated state.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected locally or by the backend.
	MetricLoginFailure
	// MetricLogout counts explicit and forced logouts.
	MetricLogout
	// MetricSessionRestored counts restores that ended authenticated.
	MetricSessionRestored
	// MetricSessionRestoreFailure counts restores that cleared the persisted token.
	MetricSessionRestoreFailure
	// MetricSessionExpiredDiscarded counts expired tokens dropped without a network call.
	MetricSessionExpiredDiscarded
	// MetricSessionRevoked counts session.revoked push events.
	MetricSessionRevoked
	// MetricUnauthorized counts 401 responses that cleared the session.
	MetricUnauthorized
	// MetricRequestSuccess counts API calls that succeeded.
	MetricRequestSuccess
	// MetricRequestFailure counts API calls that failed for any reason.
	MetricRequestFailure
	// MetricRequestTransient counts API calls that failed with a transient error.
	MetricRequestTransient
	// MetricRequestRetried counts extra attempts spent on retries.
	MetricRequestRetried
	// MetricCacheHit counts queries served from cache.
	MetricCacheHit
	// MetricCacheMiss counts queries that required a fetch.
	MetricCacheMiss
	// MetricCacheFetch counts fetches stored in the cache.
	MetricCacheFetch
	// MetricCacheFetchError counts failed fetches.
	MetricCacheFetchError
	// MetricCacheInvalidate counts entries marked stale by invalidation.
	MetricCacheInvalidate
	// MetricCacheEvict counts entries removed by the GC window.
	MetricCacheEvict
	// MetricMutationCommit counts keys confirmed by a successful optimistic mutation.
	MetricMutationCommit
	// MetricMutationRollback counts keys restored after a failed optimistic mutation.
	MetricMutationRollback
	// MetricChannelConnecting counts push connection attempts.
	MetricChannelConnecting
	// MetricChannelOpen counts push connections that opened.
	MetricChannelOpen
	// MetricChannelError counts push transport failures.
	MetricChannelError
	// MetricChannelClosed counts transitions to Disconnected.
	MetricChannelClosed
	// MetricPushEvent counts named push events handled by the client.
	MetricPushEvent
	// MetricRequestLatency is the API call latency histogram.
	MetricRequestLatency
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

// Metrics holds lock-free client counters. A nil or disabled Metrics
// ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

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

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricRequestLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
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
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto the upper bounds 25ms, 50ms, 100ms, 250ms, 500ms,
// 1s, 2.5s and +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 25:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
