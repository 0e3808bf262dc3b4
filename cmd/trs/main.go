// Command trs runs scoring and bootstrap validation offline, against a
// cohort CSV file, without the HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinscore/trs/internal/cohort"
	"github.com/clinscore/trs/internal/trs"
	"github.com/clinscore/trs/internal/validation"
)

var (
	cohortPath string
	rulePath   string
	outPath    string
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "trs",
		Short:         "Tracheostomy risk score tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cohortPath, "cohort", "", "cohort CSV file (required)")
	root.PersistentFlags().StringVar(&rulePath, "rule", "", "score rule YAML file (default: published rule)")
	root.PersistentFlags().StringVar(&outPath, "out", "", "write result JSON to file instead of stdout")

	root.AddCommand(newScoreCmd(), newValidateCmd())

	if err := root.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Score every record of a cohort and print the batch summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			co, rule, err := loadInputs()
			if err != nil {
				return err
			}

			items := trs.ScoreBatch(rule, co.Records())
			return writeResult(map[string]interface{}{
				"results": items,
				"summary": trs.Summarize(items),
			})
		},
	}
}

func newValidateCmd() *cobra.Command {
	cfg := validation.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run bootstrap optimism-corrected validation over a cohort",
		RunE: func(cmd *cobra.Command, args []string) error {
			co, rule, err := loadInputs()
			if err != nil {
				return err
			}

			v, err := validation.New(cfg, slog.Default())
			if err != nil {
				return err
			}

			report, err := v.Run(cmd.Context(), co, rule)
			if err != nil {
				return err
			}
			return writeResult(report)
		},
	}

	cmd.Flags().IntVar(&cfg.NBootstrap, "iterations", cfg.NBootstrap, "bootstrap iterations")
	cmd.Flags().Int64Var(&cfg.RandomSeed, "seed", cfg.RandomSeed, "random seed")
	cmd.Flags().Float64Var(&cfg.ConfidenceLevel, "confidence", cfg.ConfidenceLevel, "confidence level for percentile intervals")
	cmd.Flags().IntVar(&cfg.HosmerLemeshowBins, "bins", cfg.HosmerLemeshowBins, "Hosmer-Lemeshow groups")
	cmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent iterations (0 = one per CPU)")
	cmd.Flags().BoolVar(&cfg.RederiveCutpoints, "rederive-cutpoints", cfg.RederiveCutpoints,
		"re-derive continuous cutpoints on every resample")

	return cmd
}

func loadInputs() (*cohort.Cohort, trs.Rule, error) {
	if cohortPath == "" {
		return nil, trs.Rule{}, fmt.Errorf("--cohort is required")
	}

	co, err := cohort.FromCSVFile(cohortPath)
	if err != nil {
		return nil, trs.Rule{}, err
	}

	rule := trs.DefaultRule()
	if rulePath != "" {
		if rule, err = trs.LoadRule(rulePath); err != nil {
			return nil, trs.Rule{}, err
		}
	}

	slog.Info("Cohort loaded", "path", cohortPath, "records", co.Len(), "events", co.Events())
	return co, rule, nil
}

func writeResult(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	if outPath == "" {
		_, err = os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(outPath, b, 0644)
}
