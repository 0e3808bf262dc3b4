package trs

// Record is one patient row: four continuous variables, three boolean
// flags, a binary outcome, and a non-negative time to event or
// censoring. Nil pointers mark values explicitly absent.
type Record struct {
	ID        string   `json:"id,omitempty"`
	MELD      *float64 `json:"meld"`
	SAPSII    *float64 `json:"saps_ii"`
	Age       *float64 `json:"age"`
	Platelets *float64 `json:"platelets"`
	HCC       *bool    `json:"hcc"`
	CVVHD     *bool    `json:"cvvhd"`
	VHF       *bool    `json:"vhf"`

	// Outcome is 1 if the event occurred, 0 if censored.
	Outcome int `json:"outcome"`
	// Time is days to event or censoring.
	Time float64 `json:"time"`
}

// ContinuousValue returns the value of a continuous component, or nil
// when absent or when c is not continuous.
func (r Record) ContinuousValue(c Component) *float64 {
	switch c {
	case MELD:
		return r.MELD
	case SAPSII:
		return r.SAPSII
	case Age:
		return r.Age
	case Platelets:
		return r.Platelets
	}
	return nil
}

// FlagValue returns the value of a boolean component, or nil when absent
// or when c is not a flag.
func (r Record) FlagValue(c Component) *bool {
	switch c {
	case HCC:
		return r.HCC
	case CVVHD:
		return r.CVVHD
	case VHF:
		return r.VHF
	}
	return nil
}

// Float64 returns a pointer to v. Convenience for building records.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v. Convenience for building records.
func Bool(v bool) *bool { return &v }
