package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
)

type uploadOptions struct {
	name    string
	runEval bool
}

func newUploadCmd(st *cliState) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload <file.json>",
		Short: "Upload a dataset of answered test cases",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, st, &opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "uploaded_dataset", "dataset name")
	cmd.Flags().BoolVar(&opts.runEval, "run", false, "evaluate with the default metrics after upload")

	return cmd
}

func runUpload(cmd *cobra.Command, st *cliState, opts *uploadOptions, path string) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("upload: missing config (internal error)")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("upload: read file: %w", err)
	}

	outcome, err := dataset.ParseTestCases(string(raw), dataset.ParseOptions{
		AnswerField: dataset.AnswerActualOutput,
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if len(outcome.Cases) == 0 {
		return fmt.Errorf("upload: no valid test cases in %s", path)
	}

	deps, err := openDeps(st)
	if err != nil {
		return err
	}
	defer deps.Close()

	ds := &dataset.Dataset{
		ID:        uuid.NewString(),
		Name:      opts.name,
		CreatedAt: time.Now().UTC(),
		Content:   outcome.Cases,
	}
	if err := deps.store.CreateDataset(cmd.Context(), ds); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dataset %s (%s): %d cases\n", ds.ID, ds.Name, len(ds.Content))
	for _, rej := range outcome.Rejected {
		fmt.Fprintf(out, "  rejected element %d: %s\n", rej.Index, rej.Reason)
	}

	if !opts.runEval {
		return nil
	}

	run, err := deps.engine.CreateRun(cmd.Context(), ds.ID, st.cfg.Evaluation.Metrics)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := deps.engine.Execute(cmd.Context(), run.ID); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return printRunStatus(cmd, deps, run.ID)
}
