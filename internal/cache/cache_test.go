package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinscore/trs/internal/validation"
)

func TestKey(t *testing.T) {
	a := Key([]byte(`{"records":[],"config":{}}`))
	b := Key([]byte(`{"records":[],"config":{}}`))
	c := Key([]byte(`{"records":[],"config":{"n_bootstrap":500}}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestGetAndSet(t *testing.T) {
	cache := NewReportCache(time.Minute)
	defer cache.Stop()

	report := &validation.Report{ID: "run-1", Iterations: 1000}
	key := Key([]byte("payload"))

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, report)
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, 1, cache.Len())
}

func TestExpiry(t *testing.T) {
	cache := NewReportCache(10 * time.Millisecond)
	defer cache.Stop()

	key := Key([]byte("payload"))
	cache.Set(key, &validation.Report{ID: "run-1"})

	time.Sleep(30 * time.Millisecond)
	_, ok := cache.Get(key)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	cache := NewReportCache(time.Minute)
	defer cache.Stop()

	key := Key([]byte("payload"))
	cache.Set(key, &validation.Report{ID: "first"})
	cache.Set(key, &validation.Report{ID: "second"})

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "second", got.ID)
	assert.Equal(t, 1, cache.Len())
}
