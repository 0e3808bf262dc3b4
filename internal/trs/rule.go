package trs

import (
	"fmt"
	"sort"

	apperrors "github.com/clinscore/trs/internal/errors"
)

// MaxScore is the fixed maximum total the rule can award. The point
// assignments of any valid rule sum to exactly this value.
const MaxScore = 8

// DefaultMaxMissing is the number of absent components tolerated per
// record before its result is flagged invalid.
const DefaultMaxMissing = 2

// ContinuousRule scores one continuous variable: strictly beyond the
// cutpoint in the configured direction awards the points, at or inside
// the cutpoint awards zero.
type ContinuousRule struct {
	Cutpoint  float64   `json:"cutpoint" yaml:"cutpoint"`
	Direction Direction `json:"direction" yaml:"direction"`
	Points    int       `json:"points" yaml:"points"`
}

// Rule is an immutable score rule configuration: cutpoints, directions,
// and point weights for the continuous variables plus point weights for
// the boolean flags. Rules are passed by value into every computation;
// nothing reads from ambient state.
type Rule struct {
	Continuous map[Component]ContinuousRule `json:"continuous" yaml:"continuous"`
	Flags      map[Component]int            `json:"flags" yaml:"flags"`

	// MaxMissing is the tolerated number of absent components per record.
	MaxMissing int `json:"max_missing" yaml:"max_missing"`
	// ValidateRanges enables strict range checking of present values.
	ValidateRanges bool `json:"validate_ranges" yaml:"validate_ranges"`
}

// DefaultRule returns the published rule: cutpoints from the optimal
// cut-point analysis, point weights from the hazard ratios.
func DefaultRule() Rule {
	return Rule{
		Continuous: map[Component]ContinuousRule{
			MELD:      {Cutpoint: 20, Direction: DirectionAbove, Points: 2},
			SAPSII:    {Cutpoint: 42, Direction: DirectionAbove, Points: 1},
			Age:       {Cutpoint: 52, Direction: DirectionAbove, Points: 1},
			Platelets: {Cutpoint: 78, Direction: DirectionBelow, Points: 1},
		},
		Flags: map[Component]int{
			HCC:   1,
			CVVHD: 1,
			VHF:   1,
		},
		MaxMissing:     DefaultMaxMissing,
		ValidateRanges: true,
	}
}

// WithCutpoints returns a copy of r with the continuous cutpoints
// replaced. Directions and points are preserved; a component missing
// from cutpoints keeps its existing cutpoint.
func (r Rule) WithCutpoints(cutpoints map[Component]float64) Rule {
	cont := make(map[Component]ContinuousRule, len(r.Continuous))
	for c, cr := range r.Continuous {
		if cut, ok := cutpoints[c]; ok {
			cr.Cutpoint = cut
		}
		cont[c] = cr
	}
	flags := make(map[Component]int, len(r.Flags))
	for c, p := range r.Flags {
		flags[c] = p
	}

	out := r
	out.Continuous = cont
	out.Flags = flags
	return out
}

// Validate checks the rule invariants: every continuous component has a
// definition, a direction, and positive points; the points sum to
// MaxScore; the risk category bands are disjoint and cover 0..MaxScore.
func (r Rule) Validate() error {
	sum := 0
	for c, cr := range r.Continuous {
		if !c.Continuous() {
			return fmt.Errorf("component %s is not continuous", c)
		}
		if _, ok := VariableDefinitions[c]; !ok {
			return fmt.Errorf("component %s has no variable definition", c)
		}
		if cr.Direction != DirectionAbove && cr.Direction != DirectionBelow {
			return fmt.Errorf("component %s has invalid direction %q", c, cr.Direction)
		}
		if cr.Points <= 0 {
			return fmt.Errorf("component %s has non-positive points %d", c, cr.Points)
		}
		sum += cr.Points
	}
	for c, pts := range r.Flags {
		if c.Continuous() || !c.Valid() {
			return fmt.Errorf("component %s is not a boolean flag", c)
		}
		if pts <= 0 {
			return fmt.Errorf("component %s has non-positive points %d", c, pts)
		}
		sum += pts
	}
	if sum != MaxScore {
		return fmt.Errorf("points sum to %d, want %d", sum, MaxScore)
	}

	// Risk bands must tile 0..MaxScore without gaps or overlap.
	next := 0
	for _, cat := range RiskCategories {
		if cat.MinScore != next {
			return fmt.Errorf("risk category %s starts at %d, want %d", cat.Name, cat.MinScore, next)
		}
		if cat.MaxScore < cat.MinScore {
			return fmt.Errorf("risk category %s has inverted range", cat.Name)
		}
		next = cat.MaxScore + 1
	}
	if next != MaxScore+1 {
		return fmt.Errorf("risk categories cover 0..%d, want 0..%d", next-1, MaxScore)
	}

	return nil
}

// Result is the outcome of scoring one record: the total, the per
// component contribution, the components that were absent, and the
// clinical interpretation. Results with more than MaxMissing absent
// components are flagged invalid but still carry the score computed
// from the available data.
type Result struct {
	Total      int               `json:"total"`
	Components map[Component]int `json:"components"`
	Missing    []Component       `json:"missing,omitempty"`
	Valid      bool              `json:"valid"`
	Category   RiskCategory      `json:"risk_category"`
	Details    []string          `json:"details,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// Score applies the rule to one record. Absent values contribute zero
// points and are recorded as missing; a present continuous value outside
// its declared range fails with a range error when ValidateRanges is set.
func (r Rule) Score(rec Record) (Result, error) {
	res := Result{
		Components: make(map[Component]int, len(AllComponents)),
		Valid:      true,
	}

	for _, c := range ContinuousComponents {
		cr, ok := r.Continuous[c]
		if !ok {
			continue
		}
		v := rec.ContinuousValue(c)
		if v == nil {
			res.Missing = append(res.Missing, c)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s missing", c))
			continue
		}

		def := VariableDefinitions[c]
		if r.ValidateRanges && !def.Contains(*v) {
			return Result{}, apperrors.NewRangeError(string(c), *v, def.Min, def.Max)
		}

		triggered := false
		switch cr.Direction {
		case DirectionAbove:
			triggered = *v > cr.Cutpoint
		case DirectionBelow:
			triggered = *v < cr.Cutpoint
		}

		if triggered {
			res.Components[c] = cr.Points
			res.Total += cr.Points
			res.Details = append(res.Details, fmt.Sprintf("%s %s %g (%.1f): +%d points",
				c, comparator(cr.Direction), cr.Cutpoint, *v, cr.Points))
		} else {
			res.Components[c] = 0
			res.Details = append(res.Details, fmt.Sprintf("%s not %s %g (%.1f): +0 points",
				c, comparator(cr.Direction), cr.Cutpoint, *v))
		}
	}

	for _, c := range FlagComponents {
		pts, ok := r.Flags[c]
		if !ok {
			continue
		}
		v := rec.FlagValue(c)
		if v == nil {
			res.Missing = append(res.Missing, c)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s status missing", c))
			continue
		}

		if *v {
			res.Components[c] = pts
			res.Total += pts
			res.Details = append(res.Details, fmt.Sprintf("%s present: +%d points", c, pts))
		} else {
			res.Components[c] = 0
			res.Details = append(res.Details, fmt.Sprintf("%s absent: +0 points", c))
		}
	}

	if len(res.Missing) > r.MaxMissing {
		res.Valid = false
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Too many missing components (%d). Results may be unreliable.", len(res.Missing)))
	}

	res.Category = CategoryFor(res.Total)
	return res, nil
}

func comparator(d Direction) string {
	if d == DirectionBelow {
		return "<"
	}
	return ">"
}

// ProbabilityMap maps a total score to a predicted event probability,
// derived empirically from derivation data. Unseen totals fall back to
// the overall event rate.
type ProbabilityMap struct {
	byScore  map[int]float64
	fallback float64
}

// DeriveProbabilities builds the score-to-probability mapping from
// paired totals and binary outcomes of the derivation data.
func DeriveProbabilities(totals []int, outcomes []int) ProbabilityMap {
	counts := make(map[int]int)
	events := make(map[int]int)
	totalEvents := 0
	for i, t := range totals {
		counts[t]++
		if outcomes[i] == 1 {
			events[t]++
			totalEvents++
		}
	}

	byScore := make(map[int]float64, len(counts))
	for t, n := range counts {
		byScore[t] = float64(events[t]) / float64(n)
	}

	fallback := 0.0
	if len(totals) > 0 {
		fallback = float64(totalEvents) / float64(len(totals))
	}

	return ProbabilityMap{byScore: byScore, fallback: fallback}
}

// For returns the predicted event probability for a total score.
func (m ProbabilityMap) For(total int) float64 {
	if p, ok := m.byScore[total]; ok {
		return p
	}
	return m.fallback
}

// Scores lists the totals the map was derived from, ascending.
func (m ProbabilityMap) Scores() []int {
	scores := make([]int, 0, len(m.byScore))
	for s := range m.byScore {
		scores = append(scores, s)
	}
	sort.Ints(scores)
	return scores
}
