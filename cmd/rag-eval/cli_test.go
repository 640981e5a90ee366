package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stellarlinkco/rag-eval/internal/config"
	"github.com/stellarlinkco/rag-eval/internal/llm"
	"github.com/stellarlinkco/rag-eval/internal/store"
)

type cannedProvider struct {
	text string
}

func (p *cannedProvider) Name() string { return "canned" }

func (p *cannedProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: []llm.ContentBlock{{Type: "text", Text: p.text}}}, nil
}

func saveCLIGlobals(t *testing.T) func() {
	t.Helper()
	oldLoadConfig := loadConfig
	oldOpenStore := openStore
	oldProvider := defaultProviderFromConfig
	return func() {
		loadConfig = oldLoadConfig
		openStore = oldOpenStore
		defaultProviderFromConfig = oldProvider
	}
}

// stubDeps points every command at one sqlite file so state survives
// separate invocations, and at a canned judge/generator model.
func stubDeps(t *testing.T, modelText string) {
	t.Helper()
	t.Cleanup(saveCLIGlobals(t))

	dbPath := filepath.Join(t.TempDir(), "cli.db")
	cfg := config.Default()
	cfg.Evaluation.FailureLog = filepath.Join(t.TempDir(), "failures.log")

	loadConfig = func(string) (*config.Config, error) { return cfg, nil }
	openStore = func(*config.Config) (store.Store, error) {
		return store.NewSQLiteStore(dbPath)
	}
	defaultProviderFromConfig = func(*config.Config) (llm.Provider, error) {
		return &cannedProvider{text: modelText}, nil
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestTemplateCommand(t *testing.T) {
	out, err := runCLI(t, "template")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(out, `"test_cases"`) || !strings.Contains(out, `"actual_output"`) {
		t.Fatalf("template output: %q", out)
	}
}

func TestGenerateCommand(t *testing.T) {
	stubDeps(t, `[
		{"input": "What is Go?", "expected_output": "A language.", "context": ["Go is a language."]}
	]`)

	src := filepath.Join(t.TempDir(), "source.txt")
	if err := os.WriteFile(src, []byte("Go is a programming language."), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := runCLI(t, "generate", "--file", src, "--questions", "1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "1 cases") {
		t.Fatalf("generate output: %q", out)
	}
}

func TestGenerateCommand_MissingFile(t *testing.T) {
	stubDeps(t, "[]")
	if _, err := runCLI(t, "generate", "--file", filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("generate: expected error for missing file")
	}
}

func TestUploadRunAndStatus(t *testing.T) {
	stubDeps(t, `{"score": 0.9, "reason": "ok"}`)

	payload := `{"name": "d", "test_cases": [
		{"input": "q", "actual_output": "a", "retrieval_context": ["c"]}
	]}`
	file := filepath.Join(t.TempDir(), "cases.json")
	if err := os.WriteFile(file, []byte(payload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	out, err := runCLI(t, "upload", file, "--name", "cli_ds", "--run")
	if err != nil {
		t.Fatalf("upload --run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 cases") {
		t.Fatalf("upload output: %q", out)
	}
	if !strings.Contains(out, store.StatusCompleted) {
		t.Fatalf("run status missing from output: %q", out)
	}
	if !strings.Contains(out, "faithfulness") {
		t.Fatalf("metric stats missing from output: %q", out)
	}

	// Pull the run id back out to exercise the status command.
	var runID string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "run ") {
			runID = strings.TrimSpace(strings.TrimPrefix(line, "run "))
			break
		}
	}
	if runID == "" {
		t.Fatalf("run id not found in output: %q", out)
	}

	out, err = runCLI(t, "status", runID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, store.StatusCompleted) {
		t.Fatalf("status output: %q", out)
	}
}

func TestRunCommand_MissingDataset(t *testing.T) {
	stubDeps(t, `{"score": 0.9, "reason": "ok"}`)

	if _, err := runCLI(t, "run", "--dataset", "ghost"); err == nil {
		t.Fatalf("run: expected error for missing dataset")
	}
}
