package validation

import (
	"time"
)

// MetricSummary is the bias-corrected view of one metric: the apparent
// value on the full cohort, the bootstrap mean, the optimism estimate,
// the corrected value, and the percentile interval. BiasCorrected is
// exactly Original - Optimism.
type MetricSummary struct {
	Original      float64    `json:"original"`
	BootstrapMean float64    `json:"bootstrap_mean"`
	BiasCorrected float64    `json:"bias_corrected"`
	CI95          [2]float64 `json:"ci_95"`
	Optimism      float64    `json:"optimism"`
}

// Report is the terminal artifact of a validation run. It is created
// once, never mutated, and holds no references back into per-iteration
// state.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Config    Config    `json:"config"`

	// Metrics maps metric name to its bias-corrected summary.
	Metrics map[string]MetricSummary `json:"metrics"`

	// Apparent is the full metric set on the unmodified cohort.
	Apparent Metrics `json:"apparent"`

	// Iterations counts the resamples included in aggregation;
	// Excluded counts resamples dropped after exhausting retries.
	Iterations int      `json:"iterations"`
	Excluded   int      `json:"excluded"`
	Warnings   []string `json:"warnings,omitempty"`

	CohortSize int           `json:"cohort_size"`
	Events     int           `json:"events"`
	Duration   time.Duration `json:"duration_ns"`
}
