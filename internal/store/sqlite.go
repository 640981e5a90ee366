package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stellarlinkco/rag-eval/internal/dataset"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	insertDatasetStmt *sql.Stmt
	getDatasetStmt    *sql.Stmt
	insertRunStmt     *sql.Stmt
	getRunStmt        *sql.Stmt
	updateRunStmt     *sql.Stmt
	insertResultStmt  *sql.Stmt
	resultsByRunStmt  *sql.Stmt
}

var (
	sqliteOpen              = sql.Open
	sqlitePrepareStatements = (*SQLiteStore).prepareStatements
)

// NewSQLiteStore opens or creates a SQLite store at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store: empty sqlite path")
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: create sqlite dir: %w", err)
			}
		}
	}

	db, err := sqliteOpen("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	st := &SQLiteStore{db: db}
	if err := sqlitePrepareStatements(st); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON`,
		`PRAGMA journal_mode = WAL`,
		`CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			content BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS evaluation_runs (
			id TEXT PRIMARY KEY,
			dataset_id TEXT NOT NULL,
			status TEXT NOT NULL,
			metrics_used TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			finished_at INTEGER,
			FOREIGN KEY(dataset_id) REFERENCES datasets(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS evaluation_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			input TEXT NOT NULL,
			output TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			score REAL NOT NULL,
			reason TEXT,
			FOREIGN KEY(run_id) REFERENCES evaluation_runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_dataset_id ON evaluation_runs(dataset_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_id ON evaluation_results(run_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	if s == nil || s.db == nil {
		return errors.New("store: nil sqlite store")
	}

	ctx := context.Background()
	type stmtSpec struct {
		dst    **sql.Stmt
		query  string
		errFmt string
	}

	specs := []stmtSpec{
		{
			dst:    &s.insertDatasetStmt,
			query:  `INSERT INTO datasets (id, name, created_at, content) VALUES (?, ?, ?, ?)`,
			errFmt: "store: prepare insert dataset: %w",
		},
		{
			dst:    &s.getDatasetStmt,
			query:  `SELECT id, name, created_at, content FROM datasets WHERE id = ?`,
			errFmt: "store: prepare get dataset: %w",
		},
		{
			dst: &s.insertRunStmt,
			query: `
				INSERT INTO evaluation_runs (
					id, dataset_id, status, metrics_used, created_at, finished_at
				) VALUES (?, ?, ?, ?, ?, ?)
			`,
			errFmt: "store: prepare insert run: %w",
		},
		{
			dst: &s.getRunStmt,
			query: `
				SELECT id, dataset_id, status, metrics_used, created_at, finished_at
				FROM evaluation_runs WHERE id = ?
			`,
			errFmt: "store: prepare get run: %w",
		},
		{
			dst: &s.updateRunStmt,
			query: `
				UPDATE evaluation_runs
				SET status = ?, metrics_used = ?, finished_at = ?
				WHERE id = ?
			`,
			errFmt: "store: prepare update run: %w",
		},
		{
			dst: &s.insertResultStmt,
			query: `
				INSERT INTO evaluation_results (
					run_id, input, output, metric_name, score, reason
				) VALUES (?, ?, ?, ?, ?, ?)
			`,
			errFmt: "store: prepare insert result: %w",
		},
		{
			dst: &s.resultsByRunStmt,
			query: `
				SELECT id, run_id, input, output, metric_name, score, reason
				FROM evaluation_results
				WHERE run_id = ?
				ORDER BY id ASC
			`,
			errFmt: "store: prepare results by run: %w",
		},
	}

	for _, spec := range specs {
		stmt, err := s.db.PrepareContext(ctx, spec.query)
		if err != nil {
			return fmt.Errorf(spec.errFmt, err)
		}
		*spec.dst = stmt
	}

	return nil
}

// Close releases database resources.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	stmts := []*sql.Stmt{
		s.insertDatasetStmt,
		s.getDatasetStmt,
		s.insertRunStmt,
		s.getRunStmt,
		s.updateRunStmt,
		s.insertResultStmt,
		s.resultsByRunStmt,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateDataset persists a dataset with its test cases as a JSON blob.
func (s *SQLiteStore) CreateDataset(ctx context.Context, ds *dataset.Dataset) error {
	if s == nil {
		return errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("store: nil context")
	}
	if ds == nil {
		return errors.New("store: nil dataset")
	}
	id := strings.TrimSpace(ds.ID)
	if id == "" {
		return errors.New("store: empty dataset id")
	}

	createdAt := ds.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	content, err := json.Marshal(ds.Content)
	if err != nil {
		return fmt.Errorf("store: marshal dataset content: %w", err)
	}

	_, err = s.insertDatasetStmt.ExecContext(
		ctx,
		id,
		ds.Name,
		createdAt.UTC().UnixMilli(),
		content,
	)
	if err != nil {
		return fmt.Errorf("store: insert dataset: %w", err)
	}
	return nil
}

// GetDataset loads a dataset by id.
func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*dataset.Dataset, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("store: empty dataset id")
	}

	row := s.getDatasetStmt.QueryRowContext(ctx, id)
	var (
		dsID        string
		name        string
		createdAtMS int64
		content     []byte
	)
	if err := row.Scan(&dsID, &name, &createdAtMS, &content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: dataset %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get dataset: %w", err)
	}

	var cases []dataset.TestCase
	if len(content) > 0 {
		if err := json.Unmarshal(content, &cases); err != nil {
			return nil, fmt.Errorf("store: decode dataset content: %w", err)
		}
	}

	return &dataset.Dataset{
		ID:        dsID,
		Name:      name,
		CreatedAt: time.UnixMilli(createdAtMS).UTC(),
		Content:   cases,
	}, nil
}

// CreateRun persists a new run. A zero CreatedAt defaults to now and an
// empty Status defaults to StatusPending.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if s == nil {
		return errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("store: nil context")
	}
	if run == nil {
		return errors.New("store: nil run")
	}
	id := strings.TrimSpace(run.ID)
	if id == "" {
		return errors.New("store: empty run id")
	}
	if strings.TrimSpace(run.DatasetID) == "" {
		return errors.New("store: empty dataset id")
	}

	status := run.Status
	if status == "" {
		status = StatusPending
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	metricsJSON, err := json.Marshal(run.MetricsUsed)
	if err != nil {
		return fmt.Errorf("store: marshal metrics: %w", err)
	}

	_, err = s.insertRunStmt.ExecContext(
		ctx,
		id,
		run.DatasetID,
		status,
		string(metricsJSON),
		createdAt.UTC().UnixMilli(),
		finishedAtMS(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}
	return nil
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("store: empty run id")
	}

	row := s.getRunStmt.QueryRowContext(ctx, id)
	var (
		runID        string
		datasetID    string
		status       string
		metricsJSON  string
		createdAtMS  int64
		finishedAtNS sql.NullInt64
	)
	if err := row.Scan(&runID, &datasetID, &status, &metricsJSON, &createdAtMS, &finishedAtNS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("store: run %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get run: %w", err)
	}

	var metrics []string
	if metricsJSON != "" {
		if err := json.Unmarshal([]byte(metricsJSON), &metrics); err != nil {
			return nil, fmt.Errorf("store: decode metrics: %w", err)
		}
	}

	run := &Run{
		ID:          runID,
		DatasetID:   datasetID,
		Status:      status,
		MetricsUsed: metrics,
		CreatedAt:   time.UnixMilli(createdAtMS).UTC(),
	}
	if finishedAtNS.Valid {
		t := time.UnixMilli(finishedAtNS.Int64).UTC()
		run.FinishedAt = &t
	}
	return run, nil
}

// SaveRun updates a run's status, metrics and finish time.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if s == nil {
		return errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("store: nil context")
	}
	if run == nil {
		return errors.New("store: nil run")
	}
	id := strings.TrimSpace(run.ID)
	if id == "" {
		return errors.New("store: empty run id")
	}

	metricsJSON, err := json.Marshal(run.MetricsUsed)
	if err != nil {
		return fmt.Errorf("store: marshal metrics: %w", err)
	}

	res, err := s.updateRunStmt.ExecContext(
		ctx,
		run.Status,
		string(metricsJSON),
		finishedAtMS(run.FinishedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("store: update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: run %q: %w", id, ErrNotFound)
	}
	return nil
}

// AppendResults persists a batch of results in one transaction. Input
// order is preserved by the autoincrement id.
func (s *SQLiteStore) AppendResults(ctx context.Context, runID string, results []*Result) error {
	if s == nil {
		return errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return errors.New("store: nil context")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return errors.New("store: empty run id")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin results tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt := tx.StmtContext(ctx, s.insertResultStmt)
	defer stmt.Close()

	for i, r := range results {
		if r == nil {
			return fmt.Errorf("store: nil result at %d", i)
		}
		if _, err := stmt.ExecContext(ctx, runID, r.Input, r.Output, r.MetricName, r.Score, r.Reason); err != nil {
			return fmt.Errorf("store: insert result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit results: %w", err)
	}
	return nil
}

// ListResults lists results for a run in insertion order.
func (s *SQLiteStore) ListResults(ctx context.Context, runID string) ([]*Result, error) {
	if s == nil {
		return nil, errors.New("store: nil sqlite store")
	}
	if ctx == nil {
		return nil, errors.New("store: nil context")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("store: empty run id")
	}

	rows, err := s.resultsByRunStmt.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("store: list results: %w", err)
	}
	defer rows.Close()

	var out []*Result
	for rows.Next() {
		var (
			r      Result
			reason sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Input, &r.Output, &r.MetricName, &r.Score, &reason); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		r.Reason = reason.String
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list results: %w", err)
	}
	return out, nil
}

func finishedAtMS(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().UnixMilli()
}
