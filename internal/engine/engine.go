// Package engine drives the evaluation run lifecycle: it creates pending
// runs, executes the requested metrics over a dataset and records the
// terminal outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stellarlinkco/rag-eval/internal/metrics"
	"github.com/stellarlinkco/rag-eval/internal/store"
)

// DefaultFailureLog is where run failures are appended when no path is
// configured.
const DefaultFailureLog = "data/evaluation_errors.log"

// Engine executes evaluation runs against a scorer registry.
type Engine struct {
	store      store.Store
	registry   *metrics.Registry
	failureLog string

	now func() time.Time
}

// New builds an engine. An empty failureLog falls back to
// DefaultFailureLog.
func New(st store.Store, registry *metrics.Registry, failureLog string) *Engine {
	if strings.TrimSpace(failureLog) == "" {
		failureLog = DefaultFailureLog
	}
	return &Engine{
		store:      st,
		registry:   registry,
		failureLog: failureLog,
		now:        time.Now,
	}
}

// CreateRun validates the request and inserts a pending run.
func (e *Engine) CreateRun(ctx context.Context, datasetID string, metricNames []string) (*store.Run, error) {
	if e == nil || e.store == nil {
		return nil, errors.New("engine: not initialized")
	}
	if ctx == nil {
		return nil, errors.New("engine: nil context")
	}
	datasetID = strings.TrimSpace(datasetID)
	if datasetID == "" {
		return nil, errors.New("engine: empty dataset id")
	}
	if len(metricNames) == 0 {
		return nil, errors.New("engine: no metrics requested")
	}

	if _, err := e.store.GetDataset(ctx, datasetID); err != nil {
		return nil, fmt.Errorf("engine: dataset lookup: %w", err)
	}

	run := &store.Run{
		ID:          uuid.NewString(),
		DatasetID:   datasetID,
		Status:      store.StatusPending,
		MetricsUsed: append([]string(nil), metricNames...),
		CreatedAt:   e.now().UTC(),
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("engine: create run: %w", err)
	}
	return run, nil
}

// Execute runs all requested metrics for a pending run and records the
// terminal status. Scoring and dataset failures do not escape: they turn
// the run FAILED and are appended to the failure log. A missing or
// already-terminal run is a no-op. The returned error covers only
// persistence problems while recording the outcome.
func (e *Engine) Execute(ctx context.Context, runID string) error {
	if e == nil || e.store == nil {
		return errors.New("engine: not initialized")
	}
	if ctx == nil {
		return errors.New("engine: nil context")
	}

	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("engine: load run: %w", err)
	}
	if run.Terminal() {
		return nil
	}

	if execErr := e.executeRun(ctx, run); execErr != nil {
		return e.finishRun(ctx, run, store.StatusFailed, execErr)
	}
	return e.finishRun(ctx, run, store.StatusCompleted, nil)
}

func (e *Engine) executeRun(ctx context.Context, run *store.Run) error {
	ds, err := e.store.GetDataset(ctx, run.DatasetID)
	if err != nil {
		return fmt.Errorf("load dataset %q: %w", run.DatasetID, err)
	}
	if len(ds.Content) == 0 {
		return fmt.Errorf("dataset %q has no test cases", run.DatasetID)
	}

	scorers := e.registry.Resolve(run.MetricsUsed)
	for _, scorer := range scorers {
		scores, err := scorer.Score(ctx, ds.Content)
		if err != nil {
			return err
		}
		if len(scores) != len(ds.Content) {
			return fmt.Errorf("%s: got %d scores for %d cases", scorer.Name(), len(scores), len(ds.Content))
		}

		results := make([]*store.Result, 0, len(scores))
		for i, sc := range scores {
			tc := ds.Content[i]
			results = append(results, &store.Result{
				RunID:      run.ID,
				Input:      tc.Input,
				Output:     tc.ActualOutput,
				MetricName: scorer.Name(),
				Score:      sc.Score,
				Reason:     sc.Reason,
			})
		}
		if err := e.store.AppendResults(ctx, run.ID, results); err != nil {
			return fmt.Errorf("persist %s results: %w", scorer.Name(), err)
		}
	}
	return nil
}

// finishRun records the terminal status. The save uses a background
// context so a cancelled execution still lands in a terminal state.
func (e *Engine) finishRun(ctx context.Context, run *store.Run, status string, cause error) error {
	finished := e.now().UTC()
	run.Status = status
	run.FinishedAt = &finished

	if cause != nil {
		e.logFailure(run.ID, cause)
	}

	saveCtx := ctx
	if saveCtx.Err() != nil {
		saveCtx = context.Background()
	}
	if err := e.store.SaveRun(saveCtx, run); err != nil {
		return fmt.Errorf("engine: save run %q: %w", run.ID, err)
	}
	return nil
}

func (e *Engine) logFailure(runID string, cause error) {
	dir := filepath.Dir(e.failureLog)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
	}
	f, err := os.OpenFile(e.failureLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	line := fmt.Sprintf("%s run=%s error=%v\n", e.now().UTC().Format(time.RFC3339), runID, cause)
	_, _ = f.WriteString(line)
}
