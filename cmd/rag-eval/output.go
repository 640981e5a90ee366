package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/rag-eval/internal/analytics"
)

func printRunStatus(cmd *cobra.Command, deps *cliDeps, runID string) error {
	ctx := cmd.Context()
	run, err := deps.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	results, err := deps.store.ListResults(ctx, runID)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	summary := analytics.Summarize(run, results)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", run.ID)
	fmt.Fprintf(out, "  dataset: %s\n", run.DatasetID)
	fmt.Fprintf(out, "  status:  %s\n", run.Status)
	fmt.Fprintf(out, "  metrics: %s\n", strings.Join(run.MetricsUsed, ", "))
	if summary.DurationSeconds > 0 {
		fmt.Fprintf(out, "  duration: %.1fs (%.1fs/question)\n",
			summary.DurationSeconds, summary.AvgSecondsPerQuestion)
	}

	if len(summary.Metrics) == 0 {
		fmt.Fprintln(out, "  no results yet")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  METRIC\tAVG\tPASS RATE\tPASSED")
	for _, m := range summary.Metrics {
		fmt.Fprintf(w, "  %s\t%.2f\t%.0f%%\t%d/%d\n",
			m.Metric, m.AvgScore, m.PassRate*100, m.Passed, m.Total)
	}
	return w.Flush()
}
