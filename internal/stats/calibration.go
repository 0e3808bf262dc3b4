package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	apperrors "github.com/clinscore/trs/internal/errors"
)

// DefaultCalibrationBins is the standard decile binning of the
// Hosmer-Lemeshow test.
const DefaultCalibrationBins = 10

// HosmerLemeshowResult carries the test statistic alongside the p-value
// for diagnostic reporting.
type HosmerLemeshowResult struct {
	Statistic        float64 `json:"statistic"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	PValue           float64 `json:"p_value"`
	UsableGroups     int     `json:"usable_groups"`
}

// HosmerLemeshow runs the binned goodness-of-fit test: records are
// sorted by predicted probability, partitioned into bins groups of
// approximately equal size, and observed event counts are compared
// against expected counts per group. Groups failing the 0 < E < n guard
// are dropped with the degrees of freedom reduced accordingly, never
// below 1. Fewer than 2 usable groups is an insufficient-data failure.
func HosmerLemeshow(outcomes []int, probabilities []float64, bins int) (HosmerLemeshowResult, error) {
	n := len(outcomes)
	if n == 0 || len(probabilities) != n {
		return HosmerLemeshowResult{}, apperrors.NewInsufficientDataError("hosmer-lemeshow",
			fmt.Sprintf("outcomes (%d) and probabilities (%d) must have equal non-zero length",
				len(outcomes), len(probabilities)))
	}
	if bins < 3 {
		return HosmerLemeshowResult{}, apperrors.NewValidationError(
			fmt.Sprintf("hosmer-lemeshow requires at least 3 bins, got %d", bins))
	}

	// Sort indices by predicted probability; index as secondary key
	// keeps the partition deterministic under ties.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probabilities[order[a]] < probabilities[order[b]]
	})

	statistic := 0.0
	usable := 0
	for g := 0; g < bins; g++ {
		lo := g * n / bins
		hi := (g + 1) * n / bins
		if hi <= lo {
			continue
		}

		ng := float64(hi - lo)
		observed := 0.0
		expected := 0.0
		for _, idx := range order[lo:hi] {
			if outcomes[idx] == 1 {
				observed++
			}
			expected += probabilities[idx]
		}

		if expected <= 0 || expected >= ng {
			continue
		}

		diff := observed - expected
		statistic += diff * diff / (expected * (1 - expected/ng))
		usable++
	}

	if usable < 2 {
		return HosmerLemeshowResult{}, apperrors.NewInsufficientDataError("hosmer-lemeshow",
			fmt.Sprintf("only %d usable groups, need at least 2", usable))
	}

	df := usable - 2
	if df < 1 {
		df = 1
	}

	chi2 := distuv.ChiSquared{K: float64(df)}
	return HosmerLemeshowResult{
		Statistic:        statistic,
		DegreesOfFreedom: df,
		PValue:           chi2.Survival(statistic),
		UsableGroups:     usable,
	}, nil
}

// Brier computes the mean squared error between predicted probabilities
// and binary outcomes.
func Brier(outcomes []int, probabilities []float64) (float64, error) {
	n := len(outcomes)
	if n == 0 || len(probabilities) != n {
		return 0, apperrors.NewInsufficientDataError("brier score",
			fmt.Sprintf("outcomes (%d) and probabilities (%d) must have equal non-zero length",
				len(outcomes), len(probabilities)))
	}

	sum := 0.0
	for i, o := range outcomes {
		diff := probabilities[i] - float64(o)
		sum += diff * diff
	}
	return sum / float64(n), nil
}
