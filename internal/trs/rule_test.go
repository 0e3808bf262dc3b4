package trs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeRecord returns a record with every component present and no
// points triggered under the default rule.
func completeRecord() Record {
	return Record{
		ID:        "patient_1",
		MELD:      Float64(15),
		SAPSII:    Float64(30),
		Age:       Float64(45),
		Platelets: Float64(150),
		HCC:       Bool(false),
		CVVHD:     Bool(false),
		VHF:       Bool(false),
		Outcome:   0,
		Time:      90,
	}
}

func TestDefaultRuleValidates(t *testing.T) {
	require.NoError(t, DefaultRule().Validate())
}

func TestScore(t *testing.T) {
	rule := DefaultRule()

	tests := []struct {
		name         string
		modify       func(*Record)
		wantTotal    int
		wantCategory string
	}{
		{
			name:         "all components below cutpoints",
			modify:       func(r *Record) {},
			wantTotal:    0,
			wantCategory: "LOW",
		},
		{
			name: "maximum score",
			modify: func(r *Record) {
				r.MELD = Float64(35)
				r.SAPSII = Float64(80)
				r.Age = Float64(70)
				r.Platelets = Float64(40)
				r.HCC = Bool(true)
				r.CVVHD = Bool(true)
				r.VHF = Bool(true)
			},
			wantTotal:    MaxScore,
			wantCategory: "HIGH",
		},
		{
			name: "meld alone awards two points",
			modify: func(r *Record) {
				r.MELD = Float64(25)
			},
			wantTotal:    2,
			wantCategory: "MEDIUM",
		},
		{
			name: "values exactly at cutpoints award nothing",
			modify: func(r *Record) {
				r.MELD = Float64(20)
				r.SAPSII = Float64(42)
				r.Age = Float64(52)
				r.Platelets = Float64(78)
			},
			wantTotal:    0,
			wantCategory: "LOW",
		},
		{
			name: "low platelets trigger the below direction",
			modify: func(r *Record) {
				r.Platelets = Float64(50)
			},
			wantTotal:    1,
			wantCategory: "LOW",
		},
		{
			name: "each flag contributes one point",
			modify: func(r *Record) {
				r.HCC = Bool(true)
				r.CVVHD = Bool(true)
				r.VHF = Bool(true)
			},
			wantTotal:    3,
			wantCategory: "HIGH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			tt.modify(&rec)

			res, err := rule.Score(rec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, tt.wantCategory, res.Category.Name)
			assert.True(t, res.Valid)
			assert.Empty(t, res.Missing)
		})
	}
}

func TestScoreMissingData(t *testing.T) {
	rule := DefaultRule()

	t.Run("within tolerance stays valid", func(t *testing.T) {
		rec := completeRecord()
		rec.SAPSII = nil
		rec.VHF = nil

		res, err := rule.Score(rec)
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.ElementsMatch(t, []Component{SAPSII, VHF}, res.Missing)
		assert.NotEmpty(t, res.Warnings)
	})

	t.Run("beyond tolerance flags invalid but still scores", func(t *testing.T) {
		rec := completeRecord()
		rec.SAPSII = nil
		rec.Age = nil
		rec.VHF = nil
		rec.MELD = Float64(25)

		res, err := rule.Score(rec)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Len(t, res.Missing, 3)
		assert.Equal(t, 2, res.Total)
	})

	t.Run("missing components never contribute points", func(t *testing.T) {
		rec := Record{Outcome: 0, Time: 90}

		res, err := rule.Score(rec)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Len(t, res.Missing, 7)
		assert.False(t, res.Valid)
	})
}

func TestScoreRangeValidation(t *testing.T) {
	rule := DefaultRule()

	tests := []struct {
		name   string
		modify func(*Record)
	}{
		{name: "meld below range", modify: func(r *Record) { r.MELD = Float64(3) }},
		{name: "meld above range", modify: func(r *Record) { r.MELD = Float64(45) }},
		{name: "age below range", modify: func(r *Record) { r.Age = Float64(15) }},
		{name: "platelets above range", modify: func(r *Record) { r.Platelets = Float64(800) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := completeRecord()
			tt.modify(&rec)

			_, err := rule.Score(rec)
			assert.Error(t, err)
		})
	}

	t.Run("range checking can be disabled", func(t *testing.T) {
		relaxed := rule
		relaxed.ValidateRanges = false
		rec := completeRecord()
		rec.MELD = Float64(45)

		res, err := relaxed.Score(rec)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
	})
}

func TestScoreIsPure(t *testing.T) {
	rule := DefaultRule()
	rec := completeRecord()
	rec.MELD = Float64(25)
	rec.HCC = Bool(true)

	first, err := rule.Score(rec)
	require.NoError(t, err)
	second, err := rule.Score(rec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWithCutpoints(t *testing.T) {
	rule := DefaultRule()
	shifted := rule.WithCutpoints(map[Component]float64{MELD: 10})

	// The copy carries the new cutpoint; the original is untouched.
	assert.Equal(t, 10.0, shifted.Continuous[MELD].Cutpoint)
	assert.Equal(t, 20.0, rule.Continuous[MELD].Cutpoint)

	// Direction and points survive the replacement.
	assert.Equal(t, DirectionAbove, shifted.Continuous[MELD].Direction)
	assert.Equal(t, 2, shifted.Continuous[MELD].Points)

	// Components not named keep their cutpoints.
	assert.Equal(t, 78.0, shifted.Continuous[Platelets].Cutpoint)
}

func TestRuleValidateRejectsBadRules(t *testing.T) {
	t.Run("points must sum to max score", func(t *testing.T) {
		rule := DefaultRule()
		cr := rule.Continuous[MELD]
		cr.Points = 5
		rule.Continuous[MELD] = cr
		assert.Error(t, rule.Validate())
	})

	t.Run("direction must be known", func(t *testing.T) {
		rule := DefaultRule()
		cr := rule.Continuous[Age]
		cr.Direction = "sideways"
		rule.Continuous[Age] = cr
		assert.Error(t, rule.Validate())
	})

	t.Run("flags must be boolean components", func(t *testing.T) {
		rule := DefaultRule()
		rule.Flags[MELD] = 1
		assert.Error(t, rule.Validate())
	})
}

func TestDeriveProbabilities(t *testing.T) {
	totals := []int{0, 0, 0, 0, 2, 2, 5, 5}
	outcomes := []int{0, 0, 0, 1, 1, 0, 1, 1}

	m := DeriveProbabilities(totals, outcomes)

	assert.InDelta(t, 0.25, m.For(0), 1e-12)
	assert.InDelta(t, 0.5, m.For(2), 1e-12)
	assert.InDelta(t, 1.0, m.For(5), 1e-12)
	// Unseen totals fall back to the overall event rate.
	assert.InDelta(t, 0.5, m.For(7), 1e-12)
	assert.Equal(t, []int{0, 2, 5}, m.Scores())
}
