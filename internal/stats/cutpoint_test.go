package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCutpoint(t *testing.T) {
	tests := []struct {
		name          string
		scores        []float64
		outcomes      []int
		wantThreshold float64
		wantSens      float64
		wantSpec      float64
	}{
		{
			name:          "perfect separation",
			scores:        []float64{1, 2, 3, 10, 11, 12},
			outcomes:      []int{0, 0, 0, 1, 1, 1},
			wantThreshold: 3,
			wantSens:      1.0,
			wantSpec:      1.0,
		},
		{
			name:          "single overlap keeps smaller threshold on tie",
			scores:        []float64{1, 2, 3, 3, 4, 5},
			outcomes:      []int{0, 0, 0, 1, 1, 1},
			wantThreshold: 2,
			wantSens:      1.0,
			wantSpec:      2.0 / 3.0,
		},
		{
			name:          "two-value score",
			scores:        []float64{0, 0, 0, 1, 1, 1},
			outcomes:      []int{0, 0, 1, 0, 1, 1},
			wantThreshold: 0,
			wantSens:      2.0 / 3.0,
			wantSpec:      2.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := SelectCutpoint(tt.scores, tt.outcomes)
			require.NoError(t, err)
			assert.Equal(t, tt.wantThreshold, result.Threshold)
			assert.InDelta(t, tt.wantSens, result.Sensitivity, 1e-12)
			assert.InDelta(t, tt.wantSpec, result.Specificity, 1e-12)
		})
	}
}

func TestSelectCutpointYoudenIdentity(t *testing.T) {
	scores := []float64{2, 4, 4, 5, 7, 8, 9, 9, 10, 12}
	outcomes := []int{0, 0, 1, 0, 1, 0, 1, 1, 1, 1}

	result, err := SelectCutpoint(scores, outcomes)
	require.NoError(t, err)
	assert.InDelta(t, result.Sensitivity+result.Specificity-1, result.YoudenIndex, 1e-12)
}

func TestSelectCutpointErrors(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		outcomes []int
	}{
		{
			name:     "empty input",
			scores:   nil,
			outcomes: nil,
		},
		{
			name:     "length mismatch",
			scores:   []float64{1, 2, 3},
			outcomes: []int{0, 1},
		},
		{
			name:     "all positive",
			scores:   []float64{1, 2, 3},
			outcomes: []int{1, 1, 1},
		},
		{
			name:     "all negative",
			scores:   []float64{1, 2, 3},
			outcomes: []int{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SelectCutpoint(tt.scores, tt.outcomes)
			assert.Error(t, err)
		})
	}
}

func TestDistinctSorted(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, distinctSorted([]float64{3, 1, 2, 1, 3, 3}))
	assert.Equal(t, []float64{5}, distinctSorted([]float64{5, 5, 5}))
}
