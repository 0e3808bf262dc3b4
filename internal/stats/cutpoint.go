// Package stats holds the pure statistical primitives of the validation
// engine: cutpoint selection, concordance, calibration testing, and
// descriptive helpers. Every function is a pure function of its
// arguments.
package stats

import (
	"fmt"
	"sort"

	apperrors "github.com/clinscore/trs/internal/errors"
)

// CutpointResult is the outcome of Youden-optimal threshold selection.
// YoudenIndex is exactly Sensitivity + Specificity - 1.
type CutpointResult struct {
	Threshold   float64 `json:"threshold"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
	YoudenIndex float64 `json:"youden_index"`
}

// SelectCutpoint finds the threshold maximizing the Youden index over
// the observed ROC operating points. A record is classified positive
// when its score lies strictly above the threshold, matching the strict
// inequality of the score rule. Ties break toward the smallest
// threshold.
func SelectCutpoint(scores []float64, outcomes []int) (CutpointResult, error) {
	if len(scores) == 0 || len(scores) != len(outcomes) {
		return CutpointResult{}, apperrors.NewInsufficientDataError("cutpoint selection",
			fmt.Sprintf("scores (%d) and outcomes (%d) must have equal non-zero length", len(scores), len(outcomes)))
	}

	nPos, nNeg := 0, 0
	for _, o := range outcomes {
		if o == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return CutpointResult{}, apperrors.NewInsufficientDataError("cutpoint selection",
			"outcomes must contain at least one positive and one negative case")
	}

	candidates := distinctSorted(scores)

	best := CutpointResult{YoudenIndex: -2}
	for _, threshold := range candidates {
		tp, tn := 0, 0
		for i, s := range scores {
			positive := s > threshold
			if outcomes[i] == 1 && positive {
				tp++
			}
			if outcomes[i] != 1 && !positive {
				tn++
			}
		}

		sens := float64(tp) / float64(nPos)
		spec := float64(tn) / float64(nNeg)
		youden := sens + spec - 1

		// Strict > keeps the smallest threshold on ties: candidates
		// are visited in ascending order.
		if youden > best.YoudenIndex {
			best = CutpointResult{
				Threshold:   threshold,
				Sensitivity: sens,
				Specificity: spec,
				YoudenIndex: youden,
			}
		}
	}

	return best, nil
}

func distinctSorted(xs []float64) []float64 {
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)

	out := cp[:0]
	for i, v := range cp {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
