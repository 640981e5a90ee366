// Package analytics aggregates per-result metric verdicts into run-level
// summary statistics.
package analytics

import (
	"github.com/stellarlinkco/rag-eval/internal/store"
)

// PassThreshold is the score at or above which a verdict counts as passed.
const PassThreshold = 0.5

// MetricStats summarizes one metric across all test cases of a run.
type MetricStats struct {
	Metric   string  `json:"metric"`
	AvgScore float64 `json:"avg_score"`
	PassRate float64 `json:"pass_rate"`
	Passed   int     `json:"passed"`
	Total    int     `json:"total"`
}

// RunAnalytics is the aggregate view of a finished or in-flight run.
type RunAnalytics struct {
	Metrics               []MetricStats `json:"metrics"`
	TotalResults          int           `json:"total_results"`
	DurationSeconds       float64       `json:"duration_seconds,omitempty"`
	AvgSecondsPerQuestion float64       `json:"avg_seconds_per_question,omitempty"`
}

// Summarize aggregates results per metric. Metrics are reported in first
// appearance order. Timing fields are filled only for terminal runs, with
// the distinct input count as the per-question divisor. Empty results
// yield empty stats, not an error.
func Summarize(run *store.Run, results []*store.Result) *RunAnalytics {
	out := &RunAnalytics{
		Metrics:      make([]MetricStats, 0),
		TotalResults: len(results),
	}

	type acc struct {
		sum    float64
		passed int
		total  int
	}
	byMetric := make(map[string]*acc)
	var order []string
	inputs := make(map[string]struct{})

	for _, r := range results {
		if r == nil {
			continue
		}
		a, ok := byMetric[r.MetricName]
		if !ok {
			a = &acc{}
			byMetric[r.MetricName] = a
			order = append(order, r.MetricName)
		}
		a.sum += r.Score
		a.total++
		if r.Score >= PassThreshold {
			a.passed++
		}
		inputs[r.Input] = struct{}{}
	}

	for _, name := range order {
		a := byMetric[name]
		out.Metrics = append(out.Metrics, MetricStats{
			Metric:   name,
			AvgScore: a.sum / float64(a.total),
			PassRate: float64(a.passed) / float64(a.total),
			Passed:   a.passed,
			Total:    a.total,
		})
	}

	if run != nil && run.Terminal() && run.FinishedAt != nil && !run.CreatedAt.IsZero() {
		dur := run.FinishedAt.Sub(run.CreatedAt)
		if dur < 0 {
			dur = 0
		}
		out.DurationSeconds = dur.Seconds()
		if n := len(inputs); n > 0 {
			out.AvgSecondsPerQuestion = out.DurationSeconds / float64(n)
		}
	}

	return out
}
