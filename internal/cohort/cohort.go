// Package cohort loads and holds the patient cohort a validation run
// operates on. A cohort is immutable once loaded: every accessor hands
// out copies, and resampling builds a new cohort without touching the
// original.
package cohort

import (
	"fmt"

	apperrors "github.com/clinscore/trs/internal/errors"
	"github.com/clinscore/trs/internal/trs"
)

// Cohort is an ordered, read-only sequence of patient records.
type Cohort struct {
	records  []trs.Record
	outcomes []int
	times    []float64
}

// New builds a cohort from records, validating the structural
// invariants: binary outcomes and non-negative times. Records are
// copied; the caller's slice is not retained.
func New(records []trs.Record) (*Cohort, error) {
	if len(records) == 0 {
		return nil, apperrors.NewValidationError("cohort must contain at least one record")
	}

	cp := append([]trs.Record(nil), records...)
	outcomes := make([]int, len(cp))
	times := make([]float64, len(cp))
	for i, rec := range cp {
		if rec.Outcome != 0 && rec.Outcome != 1 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("record %d: outcome must be 0 or 1, got %d", i, rec.Outcome))
		}
		if rec.Time < 0 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("record %d: time must be non-negative, got %g", i, rec.Time))
		}
		outcomes[i] = rec.Outcome
		times[i] = rec.Time
	}

	return &Cohort{records: cp, outcomes: outcomes, times: times}, nil
}

// Len returns the number of records.
func (c *Cohort) Len() int { return len(c.records) }

// At returns the record at index i.
func (c *Cohort) At(i int) trs.Record { return c.records[i] }

// Records returns a copy of the record sequence.
func (c *Cohort) Records() []trs.Record {
	return append([]trs.Record(nil), c.records...)
}

// Outcomes returns a copy of the binary outcome vector.
func (c *Cohort) Outcomes() []int {
	return append([]int(nil), c.outcomes...)
}

// Times returns a copy of the time-to-event vector.
func (c *Cohort) Times() []float64 {
	return append([]float64(nil), c.times...)
}

// Events returns the number of records with the event.
func (c *Cohort) Events() int {
	n := 0
	for _, o := range c.outcomes {
		n += o
	}
	return n
}

// Resample builds a new cohort from the given record indices, drawn
// with replacement by the caller. The source cohort is not modified.
func (c *Cohort) Resample(indices []int) (*Cohort, error) {
	if len(indices) == 0 {
		return nil, apperrors.NewValidationError("resample requires at least one index")
	}

	records := make([]trs.Record, len(indices))
	outcomes := make([]int, len(indices))
	times := make([]float64, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(c.records) {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("resample index %d out of range [0, %d)", idx, len(c.records)))
		}
		records[i] = c.records[idx]
		outcomes[i] = c.outcomes[idx]
		times[i] = c.times[idx]
	}

	return &Cohort{records: records, outcomes: outcomes, times: times}, nil
}
