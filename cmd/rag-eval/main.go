package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarlinkco/rag-eval/internal/config"
	"github.com/stellarlinkco/rag-eval/internal/engine"
	"github.com/stellarlinkco/rag-eval/internal/generator"
	"github.com/stellarlinkco/rag-eval/internal/metrics"
	"github.com/stellarlinkco/rag-eval/internal/store"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{configPath: config.DefaultPath}

	root := &cobra.Command{
		Use:           "rag-eval",
		Short:         "Generate Q&A datasets and evaluate RAG answers",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", st.configPath, "path to config file")

	root.AddCommand(newGenerateCmd(st))
	root.AddCommand(newUploadCmd(st))
	root.AddCommand(newRunCmd(st))
	root.AddCommand(newStatusCmd(st))
	root.AddCommand(newTemplateCmd())
	return root
}

func loadState(st *cliState) error {
	cfg, err := loadConfig(st.configPath)
	if err != nil {
		return err
	}
	st.cfg = cfg
	return nil
}

// cliDeps bundles the wired service components a command needs.
type cliDeps struct {
	store  store.Store
	engine *engine.Engine
	gen    *generator.Generator
}

func (d *cliDeps) Close() {
	if d != nil && d.store != nil {
		_ = d.store.Close()
	}
}

func openDeps(st *cliState) (*cliDeps, error) {
	if st == nil || st.cfg == nil {
		return nil, fmt.Errorf("rag-eval: missing config (internal error)")
	}

	s, err := openStore(st.cfg)
	if err != nil {
		return nil, err
	}

	provider, err := defaultProviderFromConfig(st.cfg)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	registry := metrics.NewRegistry(metrics.Config{
		Provider:       provider,
		ReasonLanguage: st.cfg.Evaluation.ReasonLanguage,
		Timeout:        st.cfg.Evaluation.Timeout,
	})

	return &cliDeps{
		store:  s,
		engine: engine.New(s, registry, st.cfg.Evaluation.FailureLog),
		gen:    &generator.Generator{Provider: provider},
	}, nil
}
