package trs

import (
	"fmt"
	"math"
	"sort"
)

// BatchItem is the explicit per-record outcome of batch scoring: either
// a result or an error, never a sentinel score.
type BatchItem struct {
	Index  int     `json:"index"`
	ID     string  `json:"id,omitempty"`
	Result *Result `json:"result,omitempty"`
	Err    string  `json:"error,omitempty"`
}

// OK reports whether the record was scored successfully.
func (b BatchItem) OK() bool { return b.Err == "" }

// ScoreBatch scores every record, isolating failures per record: one
// record's range error becomes a failure entry for that record and never
// aborts the rest of the batch.
func ScoreBatch(rule Rule, records []Record) []BatchItem {
	items := make([]BatchItem, 0, len(records))
	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("patient_%d", i+1)
		}

		res, err := rule.Score(rec)
		if err != nil {
			items = append(items, BatchItem{Index: i, ID: id, Err: err.Error()})
			continue
		}
		items = append(items, BatchItem{Index: i, ID: id, Result: &res})
	}
	return items
}

// ScoreStatistics summarizes the distribution of total scores in a batch.
type ScoreStatistics struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// BatchSummary aggregates a batch of score results for reporting.
type BatchSummary struct {
	TotalPatients       int              `json:"total_patients"`
	ValidCalculations   int              `json:"valid_calculations"`
	InvalidCalculations int              `json:"invalid_calculations"`
	FailedCalculations  int              `json:"failed_calculations"`
	ScoreStatistics     *ScoreStatistics `json:"score_statistics,omitempty"`
	RiskDistribution    map[string]int   `json:"risk_distribution"`
}

// Summarize builds a batch summary over the scored items. Failed items
// count toward the total and the failure tally only.
func Summarize(items []BatchItem) BatchSummary {
	summary := BatchSummary{
		TotalPatients:    len(items),
		RiskDistribution: make(map[string]int),
	}

	var totals []float64
	minScore, maxScore := math.MaxInt, math.MinInt
	for _, item := range items {
		if !item.OK() {
			summary.FailedCalculations++
			continue
		}
		if item.Result.Valid {
			summary.ValidCalculations++
		} else {
			summary.InvalidCalculations++
		}
		summary.RiskDistribution[item.Result.Category.Name]++
		totals = append(totals, float64(item.Result.Total))
		if item.Result.Total < minScore {
			minScore = item.Result.Total
		}
		if item.Result.Total > maxScore {
			maxScore = item.Result.Total
		}
	}

	if len(totals) > 0 {
		sum := 0.0
		for _, t := range totals {
			sum += t
		}
		sorted := append([]float64(nil), totals...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		median := sorted[mid]
		if len(sorted)%2 == 0 {
			median = 0.5 * (sorted[mid-1] + sorted[mid])
		}
		summary.ScoreStatistics = &ScoreStatistics{
			Mean:   sum / float64(len(totals)),
			Median: median,
			Min:    minScore,
			Max:    maxScore,
		}
	}

	return summary
}
