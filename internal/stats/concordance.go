package stats

import (
	"fmt"

	apperrors "github.com/clinscore/trs/internal/errors"
)

// Concordance computes Harrell's C over (score, outcome, time) triples:
// the probability that, of a random evaluable pair, the record with the
// shorter event time has the higher score. A pair is evaluable when the
// record with the shorter time had the event; pairs where both are
// censored, where the earlier record is censored, or where times and
// outcomes are both equal are excluded. Tied scores count 0.5.
//
// For a purely binary outcome with equal times this reduces exactly to
// the area under the ROC curve.
func Concordance(scores, times []float64, outcomes []int) (float64, error) {
	n := len(scores)
	if n == 0 || len(times) != n || len(outcomes) != n {
		return 0, apperrors.NewInsufficientDataError("concordance",
			fmt.Sprintf("scores (%d), times (%d) and outcomes (%d) must have equal non-zero length",
				len(scores), len(times), len(outcomes)))
	}

	var concordant, tied float64
	evaluable := 0

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			worse, better, ok := orderPair(i, j, times, outcomes)
			if !ok {
				continue
			}
			evaluable++

			switch {
			case scores[worse] > scores[better]:
				concordant++
			case scores[worse] == scores[better]:
				tied++
			}
		}
	}

	if evaluable == 0 {
		return 0, apperrors.NewUndefinedStatisticError("concordance", "zero evaluable pairs")
	}

	return (concordant + 0.5*tied) / float64(evaluable), nil
}

// orderPair decides whether the pair (i, j) is evaluable and, if so,
// which record has the worse outcome (the shorter event time).
func orderPair(i, j int, times []float64, outcomes []int) (worse, better int, ok bool) {
	ti, tj := times[i], times[j]

	if ti == tj {
		// Equal times are evaluable only when exactly one record had
		// the event; that record counts as the worse outcome.
		if outcomes[i] == outcomes[j] {
			return 0, 0, false
		}
		if outcomes[i] == 1 {
			return i, j, true
		}
		return j, i, true
	}

	first, second := i, j
	if tj < ti {
		first, second = j, i
	}

	// The earlier record must have had the event; a censored record
	// tells us nothing about its ordering against a later one.
	if outcomes[first] != 1 {
		return 0, 0, false
	}
	return first, second, true
}

// AUC computes the area under the ROC curve for binary outcomes via the
// rank-sum (Mann-Whitney) formulation, counting tied scores 0.5.
func AUC(scores []float64, outcomes []int) (float64, error) {
	if len(scores) == 0 || len(scores) != len(outcomes) {
		return 0, apperrors.NewInsufficientDataError("auc",
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
		return 0, apperrors.NewInsufficientDataError("auc",
			"outcomes must contain at least one positive and one negative case")
	}

	var wins float64
	for i, si := range scores {
		if outcomes[i] != 1 {
			continue
		}
		for j, sj := range scores {
			if outcomes[j] == 1 {
				continue
			}
			switch {
			case si > sj:
				wins++
			case si == sj:
				wins += 0.5
			}
		}
	}

	return wins / float64(nPos*nNeg), nil
}
