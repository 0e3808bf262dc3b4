package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest(200, 10*time.Millisecond)
	m.RecordRequest(200, 20*time.Millisecond)
	m.RecordRequest(500, 30*time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, int64(3), snapshot["request_count"])
	assert.Equal(t, int64(1), snapshot["error_count"])

	byStatus, ok := snapshot["requests_by_status"].(map[int]int64)
	require.True(t, ok)
	assert.Equal(t, int64(2), byStatus[200])
	assert.Equal(t, int64(1), byStatus[500])
}

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordScore()
	m.RecordScore()
	m.RecordBatch()
	m.RecordValidationRun()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordCacheMiss()

	snapshot := m.Snapshot()
	assert.Equal(t, int64(2), snapshot["score_count"])
	assert.Equal(t, int64(1), snapshot["batch_count"])
	assert.Equal(t, int64(1), snapshot["validation_runs"])
	assert.Equal(t, int64(1), snapshot["cache_hits"])
	assert.Equal(t, int64(2), snapshot["cache_misses"])
}

func TestResponseTimePercentile(t *testing.T) {
	m := NewMetrics()

	assert.Equal(t, time.Duration(0), m.ResponseTimePercentile(50))

	for i := 1; i <= 100; i++ {
		m.RecordRequest(200, time.Duration(i)*time.Millisecond)
	}

	assert.Equal(t, 50*time.Millisecond, m.ResponseTimePercentile(50).Round(time.Millisecond))
	assert.GreaterOrEqual(t, m.ResponseTimePercentile(95), 90*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, m.ResponseTimePercentile(100))
}

func TestResponseTimeWindowIsBounded(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 1100; i++ {
		m.RecordRequest(200, time.Millisecond)
	}

	m.responseMutex.RLock()
	defer m.responseMutex.RUnlock()
	assert.LessOrEqual(t, len(m.responseTimes), 1000)
}
