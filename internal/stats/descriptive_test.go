package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}

func TestPercentile(t *testing.T) {
	xs := []float64{4, 1, 3, 2, 5}
	assert.InDelta(t, 1.0, Percentile(xs, 0), 1e-12)
	assert.InDelta(t, 5.0, Percentile(xs, 1), 1e-12)
	assert.InDelta(t, 3.0, Percentile(xs, 0.5), 1e-12)
	// Input order is preserved.
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, xs)
}

func TestPercentileEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}
