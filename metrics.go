package goAuthState

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one gateway counter or histogram.
type MetricID uint16

const (
	// MetricSignInSuccess counts successful Google, Facebook and password sign-ins.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure counts failed Google, Facebook and password sign-ins.
	MetricSignInFailure
	// MetricSignUpSuccess counts completed email/password sign-ups.
	MetricSignUpSuccess
	// MetricSignUpFailure counts failed sign-ups, including partial ones.
	MetricSignUpFailure
	// MetricAnonymousSignInSuccess counts anonymous sessions established.
	MetricAnonymousSignInSuccess
	// MetricAnonymousSignInFailure counts failed anonymous sign-ins.
	MetricAnonymousSignInFailure
	// MetricSignOut counts successful sign-outs.
	MetricSignOut
	// MetricSignOutFailure counts failed sign-outs.
	MetricSignOutFailure
	// MetricCredentialCollision counts popup sign-ins that hit an existing account.
	MetricCredentialCollision
	// MetricCredentialLinkSuccess counts credentials linked after a collision.
	MetricCredentialLinkSuccess
	// MetricCredentialLinkFailure counts failed or refused link attempts.
	MetricCredentialLinkFailure
	// MetricEmailActionSent counts verification and reset emails sent.
	MetricEmailActionSent
	// MetricEmailActionFailure counts failed verification and reset emails.
	MetricEmailActionFailure
	// MetricProfileUpdate counts display-name and email updates.
	MetricProfileUpdate
	// MetricProfileUpdateFailure counts failed profile updates.
	MetricProfileUpdateFailure
	// MetricSessionPublished counts every Session published by the gateway.
	MetricSessionPublished
	// MetricSessionRollback counts snapshot restores after failed operations.
	MetricSessionRollback
	// MetricAuthStateChange counts ambient auth-state notifications received.
	MetricAuthStateChange
	// MetricTokenFailure counts ID-token resolution failures.
	MetricTokenFailure
	// MetricSignInLatency is the sign-in latency histogram.
	MetricSignInLatency
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

// Metrics holds lock-free gateway counters. A nil *Metrics is valid and
// records nothing.
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

// NewMetrics creates a counter set.
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

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricSignInLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricSignInLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics produce empty maps.
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
		if id == MetricSignInLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSignInLatency].buckets[i])
		}
		s.Histograms[MetricSignInLatency] = buckets
	}

	return s
}

// Sign-in latency is dominated by the provider round trip and, for popups, by
// the user; buckets run from 50ms to 10s.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 10000:
		return 6
	default:
		return 7
	}
}
