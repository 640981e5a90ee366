package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show status and analytics for an evaluation run",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := openDeps(st)
			if err != nil {
				return err
			}
			defer deps.Close()
			return printRunStatus(cmd, deps, args[0])
		},
	}
	return cmd
}

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print a sample dataset upload payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), datasetTemplate)
			return nil
		},
	}
}

const datasetTemplate = `{
  "name": "my_dataset",
  "test_cases": [
    {
      "input": "What is the capital of France?",
      "actual_output": "The capital of France is Paris.",
      "expected_output": "Paris",
      "retrieval_context": ["France is a country in Western Europe. Its capital is Paris."],
      "context": ["France is a country in Western Europe. Its capital is Paris."]
    }
  ]
}`
