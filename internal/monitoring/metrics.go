package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics
type Metrics struct {
	RequestCount   int64
	ErrorCount     int64
	ScoreCount     int64
	BatchCount     int64
	ValidationRuns int64
	CacheHits      int64
	CacheMisses    int64
	StartTime      time.Time

	// Response time tracking for percentiles
	responseTimes []time.Duration
	responseMutex sync.RWMutex

	// Status code tracking
	requestCountByStatus map[int]int64
	statusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		responseTimes:        make([]time.Duration, 0, 1000),
		requestCountByStatus: make(map[int]int64),
	}
}

// RecordRequest records one served request
func (m *Metrics) RecordRequest(statusCode int, duration time.Duration) {
	atomic.AddInt64(&m.RequestCount, 1)
	if statusCode >= 400 {
		atomic.AddInt64(&m.ErrorCount, 1)
	}

	m.statusMutex.Lock()
	m.requestCountByStatus[statusCode]++
	m.statusMutex.Unlock()

	m.responseMutex.Lock()
	// Keep a bounded window so percentiles stay cheap
	if len(m.responseTimes) >= 1000 {
		m.responseTimes = m.responseTimes[1:]
	}
	m.responseTimes = append(m.responseTimes, duration)
	m.responseMutex.Unlock()
}

// RecordScore counts a single scoring operation
func (m *Metrics) RecordScore() { atomic.AddInt64(&m.ScoreCount, 1) }

// RecordBatch counts a batch scoring operation
func (m *Metrics) RecordBatch() { atomic.AddInt64(&m.BatchCount, 1) }

// RecordValidationRun counts a completed validation run
func (m *Metrics) RecordValidationRun() { atomic.AddInt64(&m.ValidationRuns, 1) }

// RecordCacheHit counts a report cache hit
func (m *Metrics) RecordCacheHit() { atomic.AddInt64(&m.CacheHits, 1) }

// RecordCacheMiss counts a report cache miss
func (m *Metrics) RecordCacheMiss() { atomic.AddInt64(&m.CacheMisses, 1) }

// ResponseTimePercentile returns the p-th percentile (0-100) of recent
// response times.
func (m *Metrics) ResponseTimePercentile(p float64) time.Duration {
	m.responseMutex.RLock()
	defer m.responseMutex.RUnlock()

	if len(m.responseTimes) == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), m.responseTimes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(p / 100 * float64(len(sorted)-1))
	return sorted[idx]
}

// Snapshot returns a point-in-time view of all counters
func (m *Metrics) Snapshot() map[string]interface{} {
	m.statusMutex.RLock()
	byStatus := make(map[int]int64, len(m.requestCountByStatus))
	for k, v := range m.requestCountByStatus {
		byStatus[k] = v
	}
	m.statusMutex.RUnlock()

	return map[string]interface{}{
		"request_count":     atomic.LoadInt64(&m.RequestCount),
		"error_count":       atomic.LoadInt64(&m.ErrorCount),
		"score_count":       atomic.LoadInt64(&m.ScoreCount),
		"batch_count":       atomic.LoadInt64(&m.BatchCount),
		"validation_runs":   atomic.LoadInt64(&m.ValidationRuns),
		"cache_hits":        atomic.LoadInt64(&m.CacheHits),
		"cache_misses":      atomic.LoadInt64(&m.CacheMisses),
		"requests_by_status": byStatus,
		"uptime_seconds":    time.Since(m.StartTime).Seconds(),
		"p50_response_ms":   m.ResponseTimePercentile(50).Milliseconds(),
		"p95_response_ms":   m.ResponseTimePercentile(95).Milliseconds(),
	}
}
