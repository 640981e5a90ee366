package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type runOptions struct {
	datasetID string
	metrics   []string
}

func newRunCmd(st *cliState) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a stored dataset",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.datasetID, "dataset", "", "dataset id to evaluate")
	cmd.Flags().StringSliceVar(&opts.metrics, "metrics", nil, "metrics to run (default from config)")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func runEvaluation(cmd *cobra.Command, st *cliState, opts *runOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("run: missing config (internal error)")
	}

	datasetID := strings.TrimSpace(opts.datasetID)
	if datasetID == "" {
		return fmt.Errorf("run: missing --dataset")
	}

	metricNames := opts.metrics
	if len(metricNames) == 0 {
		metricNames = st.cfg.Evaluation.Metrics
	}

	deps, err := openDeps(st)
	if err != nil {
		return err
	}
	defer deps.Close()

	run, err := deps.engine.CreateRun(cmd.Context(), datasetID, metricNames)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if err := deps.engine.Execute(cmd.Context(), run.ID); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return printRunStatus(cmd, deps, run.ID)
}
