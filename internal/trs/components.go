package trs

import "fmt"

// Component identifies one scored variable of the tracheostomy risk
// score. The set is closed: every component the rule can ever award
// points for is enumerated here, so an unknown component is a
// compile-time impossibility rather than a runtime lookup failure.
type Component string

const (
	MELD      Component = "MELD"
	SAPSII    Component = "SAPS_II"
	Age       Component = "AGE"
	Platelets Component = "PLATELETS"
	HCC       Component = "HCC"
	CVVHD     Component = "CVVHD"
	VHF       Component = "VHF"
)

// ContinuousComponents lists the components scored against a cutpoint,
// in scoring order.
var ContinuousComponents = []Component{MELD, SAPSII, Age, Platelets}

// FlagComponents lists the boolean components, in scoring order.
var FlagComponents = []Component{HCC, CVVHD, VHF}

// AllComponents lists every component, continuous first.
var AllComponents = []Component{MELD, SAPSII, Age, Platelets, HCC, CVVHD, VHF}

// Valid reports whether c names a known component.
func (c Component) Valid() bool {
	switch c {
	case MELD, SAPSII, Age, Platelets, HCC, CVVHD, VHF:
		return true
	}
	return false
}

// Continuous reports whether c is scored against a cutpoint.
func (c Component) Continuous() bool {
	switch c {
	case MELD, SAPSII, Age, Platelets:
		return true
	}
	return false
}

// Direction states which side of the cutpoint carries risk.
type Direction string

const (
	// DirectionAbove awards points for values strictly above the cutpoint.
	DirectionAbove Direction = "above"
	// DirectionBelow awards points for values strictly below the cutpoint.
	DirectionBelow Direction = "below"
)

// VariableDef describes a continuous variable: display name, unit,
// declared valid range, and the direction of risk.
type VariableDef struct {
	Name        string    `json:"name" yaml:"name"`
	Unit        string    `json:"unit" yaml:"unit"`
	Min         float64   `json:"min" yaml:"min"`
	Max         float64   `json:"max" yaml:"max"`
	Direction   Direction `json:"direction" yaml:"direction"`
	Description string    `json:"description" yaml:"description"`
}

// Contains reports whether v lies within the declared valid range.
func (d VariableDef) Contains(v float64) bool {
	return v >= d.Min && v <= d.Max
}

// VariableDefinitions is the fixed configuration table for the
// continuous variables. Ranges and units follow the derivation cohort.
var VariableDefinitions = map[Component]VariableDef{
	MELD: {
		Name:        "Model for End-Stage Liver Disease Score",
		Unit:        "points",
		Min:         6,
		Max:         40,
		Direction:   DirectionAbove,
		Description: "Primary indicator of liver dysfunction severity",
	},
	SAPSII: {
		Name:        "Simplified Acute Physiology Score II",
		Unit:        "points",
		Min:         0,
		Max:         163,
		Direction:   DirectionAbove,
		Description: "Multi-organ dysfunction assessment",
	},
	Age: {
		Name:        "Age at transplantation",
		Unit:        "years",
		Min:         18,
		Max:         80,
		Direction:   DirectionAbove,
		Description: "Patient age reflecting physiological reserve",
	},
	Platelets: {
		Name:        "Platelet count",
		Unit:        "x10^3/uL",
		Min:         10,
		Max:         500,
		Direction:   DirectionBelow,
		Description: "Coagulopathy and liver dysfunction marker",
	},
}

// FlagDescriptions documents the boolean components.
var FlagDescriptions = map[Component]string{
	HCC:   "Hepatocellular carcinoma: oncological burden and prognosis indicator",
	CVVHD: "Continuous veno-venous hemodialysis: multi-organ failure and renal support indicator",
	VHF:   "Atrial fibrillation: cardiovascular comorbidity indicator",
}

// RiskCategory maps a score band to its clinical interpretation.
type RiskCategory struct {
	Name           string  `json:"name"`
	MinScore       int     `json:"min_score"`
	MaxScore       int     `json:"max_score"`
	MortalityRate  float64 `json:"mortality_rate"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
}

// RiskCategories is ordered from lowest to highest score band. Bands are
// disjoint and together cover 0..MaxScore.
var RiskCategories = []RiskCategory{
	{
		Name:           "LOW",
		MinScore:       0,
		MaxScore:       1,
		MortalityRate:  0.10,
		Description:    "Low Risk",
		Recommendation: "Standard weaning protocol",
	},
	{
		Name:           "MEDIUM",
		MinScore:       2,
		MaxScore:       2,
		MortalityRate:  0.33,
		Description:    "Medium Risk",
		Recommendation: "Enhanced monitoring and assessment",
	},
	{
		Name:           "HIGH",
		MinScore:       3,
		MaxScore:       8,
		MortalityRate:  0.46,
		Description:    "High Risk",
		Recommendation: "Consider early tracheostomy (Day 5-7)",
	},
}

// CategoryFor returns the risk category for a total score. Scores below
// the lowest band clamp to it, scores above the highest band clamp to
// that.
func CategoryFor(score int) RiskCategory {
	for _, cat := range RiskCategories {
		if score >= cat.MinScore && score <= cat.MaxScore {
			return cat
		}
	}
	if score < RiskCategories[0].MinScore {
		return RiskCategories[0]
	}
	return RiskCategories[len(RiskCategories)-1]
}

// ComponentInfo bundles everything known about one component for
// reporting to collaborators.
type ComponentInfo struct {
	Component   Component    `json:"component"`
	Continuous  bool         `json:"continuous"`
	Definition  *VariableDef `json:"definition,omitempty"`
	Description string       `json:"description,omitempty"`
	Cutpoint    *float64     `json:"cutpoint,omitempty"`
	Points      int          `json:"points"`
}

// Info returns the full description of component c under rule r.
func (r Rule) Info(c Component) (ComponentInfo, error) {
	if !c.Valid() {
		return ComponentInfo{}, fmt.Errorf("unknown component: %s", c)
	}

	info := ComponentInfo{Component: c, Continuous: c.Continuous()}
	if c.Continuous() {
		def := VariableDefinitions[c]
		info.Definition = &def
		if cr, ok := r.Continuous[c]; ok {
			cut := cr.Cutpoint
			info.Cutpoint = &cut
			info.Points = cr.Points
		}
	} else {
		info.Description = FlagDescriptions[c]
		info.Points = r.Flags[c]
	}
	return info, nil
}

// AllInfo returns component descriptions for every component of rule r.
func (r Rule) AllInfo() []ComponentInfo {
	infos := make([]ComponentInfo, 0, len(AllComponents))
	for _, c := range AllComponents {
		info, err := r.Info(c)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos
}
