package validation

import (
	"github.com/clinscore/trs/internal/cohort"
	apperrors "github.com/clinscore/trs/internal/errors"
	"github.com/clinscore/trs/internal/stats"
	"github.com/clinscore/trs/internal/trs"
)

// Metric names as exposed to collaborators.
const (
	MetricCIndex       = "c_index"
	MetricAUC          = "auc"
	MetricBrier        = "brier_score"
	MetricSensitivity  = "sensitivity"
	MetricSpecificity  = "specificity"
	MetricCalibrationP = "calibration_p_value"
)

// MetricNames lists every reported metric in its fixed reporting order.
// Aggregation iterates this list so the output layout never depends on
// map ordering.
var MetricNames = []string{
	MetricCIndex,
	MetricAUC,
	MetricBrier,
	MetricSensitivity,
	MetricSpecificity,
	MetricCalibrationP,
}

// Metrics is the immutable value object bundling one evaluation:
// discrimination, calibration and classification performance.
type Metrics struct {
	CIndex       float64 `json:"c_index"`
	AUC          float64 `json:"auc"`
	BrierScore   float64 `json:"brier_score"`
	Sensitivity  float64 `json:"sensitivity"`
	Specificity  float64 `json:"specificity"`
	CalibrationP float64 `json:"calibration_p_value"`
}

// Value returns the named metric, or 0 for an unknown name.
func (m Metrics) Value(name string) float64 {
	switch name {
	case MetricCIndex:
		return m.CIndex
	case MetricAUC:
		return m.AUC
	case MetricBrier:
		return m.BrierScore
	case MetricSensitivity:
		return m.Sensitivity
	case MetricSpecificity:
		return m.Specificity
	case MetricCalibrationP:
		return m.CalibrationP
	}
	return 0
}

// model is one fitted scoring model: the rule with its (possibly
// re-derived) cutpoints, the empirical score-to-probability mapping,
// and the Youden-selected decision threshold on the total score. All
// three come from the same derivation cohort; evaluating the model on a
// different cohort is what exposes optimism.
type model struct {
	rule      trs.Rule
	probs     trs.ProbabilityMap
	threshold float64
}

// fit derives a model from a cohort. When rederive is set, each
// continuous cutpoint is re-selected on this cohort via Youden
// optimization; otherwise the rule's cutpoints are kept as configured.
func fit(c *cohort.Cohort, rule trs.Rule, rederive bool) (model, error) {
	outcomes := c.Outcomes()

	if rederive {
		cutpoints := make(map[trs.Component]float64, len(rule.Continuous))
		for comp := range rule.Continuous {
			cut, err := selectComponentCutpoint(c, comp)
			if err != nil {
				return model{}, err
			}
			cutpoints[comp] = cut
		}
		rule = rule.WithCutpoints(cutpoints)
	}

	totals, err := totalScores(c, rule)
	if err != nil {
		return model{}, err
	}

	intTotals := make([]int, len(totals))
	for i, t := range totals {
		intTotals[i] = int(t)
	}

	threshold, err := stats.SelectCutpoint(totals, outcomes)
	if err != nil {
		return model{}, err
	}

	return model{
		rule:      rule,
		probs:     trs.DeriveProbabilities(intTotals, outcomes),
		threshold: threshold.Threshold,
	}, nil
}

// selectComponentCutpoint runs the Youden selector on one continuous
// variable. Records with the value absent are skipped. Below-direction
// variables are negated so the selector's strictly-above convention
// applies, then the threshold is negated back.
func selectComponentCutpoint(c *cohort.Cohort, comp trs.Component) (float64, error) {
	def := trs.VariableDefinitions[comp]

	var values []float64
	var outcomes []int
	for i := 0; i < c.Len(); i++ {
		rec := c.At(i)
		v := rec.ContinuousValue(comp)
		if v == nil {
			continue
		}
		if def.Direction == trs.DirectionBelow {
			values = append(values, -*v)
		} else {
			values = append(values, *v)
		}
		outcomes = append(outcomes, rec.Outcome)
	}

	res, err := stats.SelectCutpoint(values, outcomes)
	if err != nil {
		return 0, apperrors.NewInsufficientDataError("cutpoint selection",
			string(comp)+": "+err.Error())
	}

	if def.Direction == trs.DirectionBelow {
		return -res.Threshold, nil
	}
	return res.Threshold, nil
}

// totalScores applies the rule to every record of the cohort.
func totalScores(c *cohort.Cohort, rule trs.Rule) ([]float64, error) {
	totals := make([]float64, c.Len())
	for i := 0; i < c.Len(); i++ {
		res, err := rule.Score(c.At(i))
		if err != nil {
			return nil, err
		}
		totals[i] = float64(res.Total)
	}
	return totals, nil
}

// evaluate computes the full metric set for a model on an evaluation
// cohort. All six metrics must succeed or the evaluation fails as a
// whole; there are no partial-metric evaluations.
func evaluate(m model, c *cohort.Cohort, calibrationBins int) (Metrics, error) {
	totals, err := totalScores(c, m.rule)
	if err != nil {
		return Metrics{}, err
	}

	outcomes := c.Outcomes()
	times := c.Times()

	cIndex, err := stats.Concordance(totals, times, outcomes)
	if err != nil {
		return Metrics{}, err
	}

	auc, err := stats.AUC(totals, outcomes)
	if err != nil {
		return Metrics{}, err
	}

	probs := make([]float64, len(totals))
	for i, t := range totals {
		probs[i] = m.probs.For(int(t))
	}

	brier, err := stats.Brier(outcomes, probs)
	if err != nil {
		return Metrics{}, err
	}

	hl, err := stats.HosmerLemeshow(outcomes, probs, calibrationBins)
	if err != nil {
		return Metrics{}, err
	}

	sens, spec, err := classify(totals, outcomes, m.threshold)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		CIndex:       cIndex,
		AUC:          auc,
		BrierScore:   brier,
		Sensitivity:  sens,
		Specificity:  spec,
		CalibrationP: hl.PValue,
	}, nil
}

// classify computes sensitivity and specificity at the decision
// threshold, classifying positive for totals strictly above it.
func classify(totals []float64, outcomes []int, threshold float64) (sens, spec float64, err error) {
	tp, fn, tn, fp := 0, 0, 0, 0
	for i, t := range totals {
		positive := t > threshold
		switch {
		case outcomes[i] == 1 && positive:
			tp++
		case outcomes[i] == 1:
			fn++
		case positive:
			fp++
		default:
			tn++
		}
	}

	if tp+fn == 0 || tn+fp == 0 {
		return 0, 0, apperrors.NewInsufficientDataError("classification",
			"outcomes must contain at least one positive and one negative case")
	}

	return float64(tp) / float64(tp+fn), float64(tn) / float64(tn+fp), nil
}
