package store

import (
	"context"
	"errors"
	"time"

	"github.com/stellarlinkco/rag-eval/internal/dataset"
)

// ErrNotFound reports a missing dataset or run.
var ErrNotFound = errors.New("store: not found")

// Run statuses. A run is terminal once it reaches StatusCompleted or
// StatusFailed; FinishedAt is set exactly when the run turns terminal.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// DatasetStore defines persistence for generated and uploaded datasets.
type DatasetStore interface {
	CreateDataset(ctx context.Context, ds *dataset.Dataset) error
	GetDataset(ctx context.Context, id string) (*dataset.Dataset, error)
}

// RunStore defines persistence for evaluation run lifecycle state.
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	SaveRun(ctx context.Context, run *Run) error
}

// ResultStore defines persistence for per-case metric verdicts.
type ResultStore interface {
	AppendResults(ctx context.Context, runID string, results []*Result) error
	ListResults(ctx context.Context, runID string) ([]*Result, error)
}

// Store defines persistence for datasets, runs and results.
type Store interface {
	DatasetStore
	RunStore
	ResultStore
	Close() error
}

// Run records one evaluation run over a dataset.
type Run struct {
	ID          string
	DatasetID   string
	Status      string
	MetricsUsed []string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// Terminal reports whether the run reached a final status.
func (r *Run) Terminal() bool {
	if r == nil {
		return false
	}
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Result records one metric verdict for one test case of a run.
type Result struct {
	ID         int64
	RunID      string
	Input      string
	Output     string
	MetricName string
	Score      float64
	Reason     string
}
