// Package validation implements the bootstrap optimism-correction
// engine: apparent performance on the full cohort, resampled
// performance with per-iteration cutpoint re-derivation, and
// bias-corrected aggregation.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clinscore/trs/internal/cohort"
	apperrors "github.com/clinscore/trs/internal/errors"
	"github.com/clinscore/trs/internal/stats"
	"github.com/clinscore/trs/internal/trs"
)

// Config parameterizes one validation run. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	NBootstrap         int     `json:"n_bootstrap"`
	RandomSeed         int64   `json:"random_seed"`
	ConfidenceLevel    float64 `json:"confidence_level"`
	HosmerLemeshowBins int     `json:"hosmer_lemeshow_bins"`

	// MaxResampleRetries bounds redraws of an unusable resample before
	// the iteration is excluded from aggregation.
	MaxResampleRetries int `json:"max_resample_retries"`

	// Workers caps concurrent iterations; 0 means one per CPU.
	Workers int `json:"workers"`

	// RederiveCutpoints re-selects the continuous cutpoints on every
	// resample, reproducing the overfitting of cutpoint selection.
	// With it disabled, the reported optimism is pure sampling
	// variance.
	RederiveCutpoints bool `json:"rederive_cutpoints"`
}

// DefaultConfig returns the published validation settings.
func DefaultConfig() Config {
	return Config{
		NBootstrap:         1000,
		RandomSeed:         42,
		ConfidenceLevel:    0.95,
		HosmerLemeshowBins: 10,
		MaxResampleRetries: 5,
		Workers:            0,
		RederiveCutpoints:  true,
	}
}

// Validate checks the run configuration.
func (c Config) Validate() error {
	if c.NBootstrap <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("n_bootstrap must be positive, got %d", c.NBootstrap))
	}
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return apperrors.NewValidationError(fmt.Sprintf("confidence_level must be in (0,1), got %g", c.ConfidenceLevel))
	}
	if c.HosmerLemeshowBins < 3 {
		return apperrors.NewValidationError(fmt.Sprintf("hosmer_lemeshow_bins must be at least 3, got %d", c.HosmerLemeshowBins))
	}
	if c.MaxResampleRetries < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("max_resample_retries must be non-negative, got %d", c.MaxResampleRetries))
	}
	if c.Workers < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("workers must be non-negative, got %d", c.Workers))
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Validator orchestrates bootstrap validation runs.
type Validator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a validator with the given configuration.
func New(cfg Config, logger *slog.Logger) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{cfg: cfg, logger: logger}, nil
}

// iterationResult is one completed bootstrap iteration: the metric set
// on the resample (apparent-on-training) and on the original cohort
// (test-on-original), sharing the iteration's re-derived cutpoints.
type iterationResult struct {
	completed bool
	boot      Metrics
	test      Metrics
	warning   string
}

// Run executes the full pipeline against an immutable cohort. It fails
// fatally only when the apparent evaluation on the full cohort is
// impossible; individual resample failures are retried with fresh draws
// and then excluded with a recorded warning. Iterations are pure
// functions of (cohort, seed, iteration index, configuration), so the
// report is identical across runs and worker counts: results are
// collected into a slice indexed by iteration and aggregated in index
// order, which fixes the floating-point summation order regardless of
// scheduling.
func (v *Validator) Run(ctx context.Context, co *cohort.Cohort, rule trs.Rule) (*Report, error) {
	if err := rule.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid score rule", err)
	}

	start := time.Now()
	runID := uuid.NewString()
	v.logger.Info("validation run started",
		"run_id", runID,
		"cohort_size", co.Len(),
		"events", co.Events(),
		"n_bootstrap", v.cfg.NBootstrap,
		"seed", v.cfg.RandomSeed,
	)

	// Step 1: apparent performance on the unmodified cohort.
	apparentModel, err := fit(co, rule, v.cfg.RederiveCutpoints)
	if err != nil {
		return nil, apperrors.WrapError(err, "apparent model fit failed")
	}
	apparent, err := evaluate(apparentModel, co, v.cfg.HosmerLemeshowBins)
	if err != nil {
		return nil, apperrors.WrapError(err, "apparent evaluation failed")
	}

	// Step 2: the resample loop, fanned out across workers.
	results := make([]iterationResult, v.cfg.NBootstrap)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.workers())

	for it := 0; it < v.cfg.NBootstrap; it++ {
		it := it
		g.Go(func() error {
			// Cancellation is honored only at iteration boundaries so
			// partial reports stay well-defined.
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			res, err := v.runIteration(co, rule, it)
			if err != nil {
				return err
			}
			results[it] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := v.aggregate(runID, apparent, results, co)
	report.Duration = time.Since(start)

	v.logger.Info("validation run completed",
		"run_id", runID,
		"iterations", report.Iterations,
		"excluded", report.Excluded,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// runIteration draws one resample and computes its metric pair. The
// pseudo-random stream is derived from (seed, iteration) alone, so
// iterations are independent of each other and of execution order. An
// unusable resample (e.g. no events drawn) is redrawn from the same
// stream up to MaxResampleRetries times; a still-unusable iteration is
// returned as excluded rather than failing the run.
func (v *Validator) runIteration(co *cohort.Cohort, rule trs.Rule, it int) (iterationResult, error) {
	rng := rand.New(rand.NewPCG(uint64(v.cfg.RandomSeed), uint64(it)))
	n := co.Len()

	var lastErr error
	for attempt := 0; attempt <= v.cfg.MaxResampleRetries; attempt++ {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = rng.IntN(n)
		}

		resample, err := co.Resample(indices)
		if err != nil {
			return iterationResult{}, err
		}

		boot, test, err := v.evaluateResample(resample, co, rule)
		if err == nil {
			return iterationResult{completed: true, boot: boot, test: test}, nil
		}
		if !apperrors.IsRecoverableIterationError(err) {
			return iterationResult{}, apperrors.WithIteration(apperrors.ToAppError(err), it)
		}
		lastErr = err
	}

	warning := fmt.Sprintf("iteration %d excluded after %d attempts: %v",
		it, v.cfg.MaxResampleRetries+1, lastErr)
	v.logger.Warn("bootstrap iteration excluded", "iteration", it, "error", lastErr)
	return iterationResult{warning: warning}, nil
}

// evaluateResample fits the iteration model on the resample and
// evaluates it both on the resample and on the original cohort. Either
// both metric sets succeed or the whole attempt fails, keeping the
// aggregation denominator consistent across metrics.
func (v *Validator) evaluateResample(resample, original *cohort.Cohort, rule trs.Rule) (boot, test Metrics, err error) {
	m, err := fit(resample, rule, v.cfg.RederiveCutpoints)
	if err != nil {
		return Metrics{}, Metrics{}, err
	}

	boot, err = evaluate(m, resample, v.cfg.HosmerLemeshowBins)
	if err != nil {
		return Metrics{}, Metrics{}, err
	}

	test, err = evaluate(m, original, v.cfg.HosmerLemeshowBins)
	if err != nil {
		return Metrics{}, Metrics{}, err
	}

	return boot, test, nil
}

// aggregate reduces the per-iteration results into the final report.
// Only fully completed iterations enter the aggregation, and they enter
// it in iteration order.
func (v *Validator) aggregate(runID string, apparent Metrics, results []iterationResult, co *cohort.Cohort) *Report {
	var warnings []string
	completed := 0
	for _, r := range results {
		if r.completed {
			completed++
		} else if r.warning != "" {
			warnings = append(warnings, r.warning)
		}
	}

	alpha := (1 - v.cfg.ConfidenceLevel) / 2

	summaries := make(map[string]MetricSummary, len(MetricNames))
	for _, name := range MetricNames {
		bootVals := make([]float64, 0, completed)
		optimisms := make([]float64, 0, completed)
		for _, r := range results {
			if !r.completed {
				continue
			}
			bootVals = append(bootVals, r.boot.Value(name))
			optimisms = append(optimisms, r.boot.Value(name)-r.test.Value(name))
		}

		original := apparent.Value(name)
		optimism := stats.Mean(optimisms)
		summaries[name] = MetricSummary{
			Original:      original,
			BootstrapMean: stats.Mean(bootVals),
			BiasCorrected: original - optimism,
			CI95: [2]float64{
				stats.Percentile(bootVals, alpha),
				stats.Percentile(bootVals, 1-alpha),
			},
			Optimism: optimism,
		}
	}

	return &Report{
		ID:         runID,
		CreatedAt:  time.Now().UTC(),
		Config:     v.cfg,
		Metrics:    summaries,
		Apparent:   apparent,
		Iterations: completed,
		Excluded:   len(results) - completed,
		Warnings:   warnings,
		CohortSize: co.Len(),
		Events:     co.Events(),
	}
}
