package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter or histogram slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricAuthenticateSuccess
	MetricAuthenticateRejected
	MetricRenewalSuccess
	MetricRenewalFallback
	MetricRenewalConflict
	MetricStoreError
	MetricCookiesCleared
	MetricLogout
	MetricSessionRevoked
	MetricAuthenticateLatency
	metricIDCount
)

// HistogramBucketCount is the number of latency buckets, the last one +Inf.
const HistogramBucketCount = 8

const cacheLineSize = 64

// bucketUpperMillis are the inclusive upper bounds of every bucket but the last.
var bucketUpperMillis = [HistogramBucketCount - 1]int64{5, 10, 25, 50, 100, 250, 500}

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

type histogram struct {
	buckets [HistogramBucketCount]atomic.Uint64
}

// Config toggles collection. Latency histograms need Enabled as well.
type Config struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

// Metrics holds lock-free counters and latency histograms. All methods are
// safe on a nil receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]histogram
}

// Snapshot is a point-in-time copy. Histogram buckets are non-cumulative.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(cfg Config) *Metrics {
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

func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Observe records d for a histogram metric. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || !IsHistogram(id) {
		return
	}
	m.histograms[id].buckets[BucketIndex(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

func (m *Metrics) Snapshot() Snapshot {
	if !m.Enabled() {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if IsHistogram(id) {
			continue
		}
		s.Counters[id] = m.counters[id].value.Load()
	}
	if m.enableLatency {
		for id := MetricID(0); id < metricIDCount; id++ {
			if !IsHistogram(id) {
				continue
			}
			buckets := make([]uint64, HistogramBucketCount)
			for i := range buckets {
				buckets[i] = m.histograms[id].buckets[i].Load()
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

// IsHistogram reports whether id is recorded with Observe.
func IsHistogram(id MetricID) bool {
	return id == MetricAuthenticateLatency
}

// BucketIndex maps d onto the fixed bucket layout.
func BucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, upper := range bucketUpperMillis {
		if ms <= upper {
			return i
		}
	}
	return HistogramBucketCount - 1
}
