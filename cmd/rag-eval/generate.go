package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
	"github.com/stellarlinkco/rag-eval/internal/generator"
)

type generateOptions struct {
	file      string
	name      string
	questions int
}

func newGenerateCmd(st *cliState) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize a Q&A dataset from a text file",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadState(st)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, st, &opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "path to the source text file")
	cmd.Flags().StringVar(&opts.name, "name", "generated_dataset", "dataset name")
	cmd.Flags().IntVar(&opts.questions, "questions", 0, "number of questions to generate (default from config)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runGenerate(cmd *cobra.Command, st *cliState, opts *generateOptions) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("generate: missing config (internal error)")
	}

	raw, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("generate: read source: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fmt.Errorf("generate: %s is empty", opts.file)
	}

	questions := opts.questions
	if questions == 0 {
		questions = st.cfg.Evaluation.NumQuestions
	}
	if questions < 1 || questions > 50 {
		return fmt.Errorf("generate: questions must be between 1 and 50 (got %d)", questions)
	}

	deps, err := openDeps(st)
	if err != nil {
		return err
	}
	defer deps.Close()

	res, err := deps.gen.Generate(cmd.Context(), &generator.GenerateRequest{
		Text:         text,
		NumQuestions: questions,
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	ds := &dataset.Dataset{
		ID:        uuid.NewString(),
		Name:      opts.name,
		CreatedAt: time.Now().UTC(),
		Content:   res.Cases,
	}
	if err := deps.store.CreateDataset(cmd.Context(), ds); err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dataset %s (%s): %d cases\n", ds.ID, ds.Name, len(ds.Content))
	for _, rej := range res.Rejected {
		fmt.Fprintf(out, "  rejected element %d: %s\n", rej.Index, rej.Reason)
	}
	return nil
}
