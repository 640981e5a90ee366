package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stellarlinkco/rag-eval/internal/analytics"
	"github.com/stellarlinkco/rag-eval/internal/dataset"
	"github.com/stellarlinkco/rag-eval/internal/generator"
	"github.com/stellarlinkco/rag-eval/internal/store"
)

const (
	maxQuestions = 50

	// statusInputLimit bounds the echoed question text in status
	// responses so large inputs do not bloat polling payloads.
	statusInputLimit = 50
)

type generateRequest struct {
	Text         string `json:"text"`
	Name         string `json:"name"`
	NumQuestions int    `json:"num_questions"`
}

type uploadRequest struct {
	Name      string          `json:"name"`
	TestCases json.RawMessage `json:"test_cases"`
}

type startEvaluationRequest struct {
	DatasetID string   `json:"dataset_id"`
	Metrics   []string `json:"metrics"`
}

type resultRow struct {
	Input      string  `json:"input"`
	Output     string  `json:"output"`
	MetricName string  `json:"metric_name"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerateDataset(c *gin.Context) {
	if s == nil || s.store == nil || s.generator == nil || s.config == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing text"))
		return
	}

	numQuestions := req.NumQuestions
	if numQuestions == 0 {
		numQuestions = s.config.Evaluation.NumQuestions
	}
	if numQuestions < 1 || numQuestions > maxQuestions {
		respondError(c, http.StatusBadRequest, fmt.Errorf("num_questions must be between 1 and %d (got %d)", maxQuestions, numQuestions))
		return
	}

	res, err := s.generator.Generate(c.Request.Context(), &generator.GenerateRequest{
		Text:         text,
		NumQuestions: numQuestions,
	})
	if err != nil {
		var genErr *generator.GenerationFailedError
		if errors.As(err, &genErr) {
			respondError(c, http.StatusBadGateway, err)
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "generated_dataset"
	}
	ds := &dataset.Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Content:   res.Cases,
	}
	if err := s.store.CreateDataset(c.Request.Context(), ds); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"dataset_id": ds.ID,
		"name":       ds.Name,
		"num_cases":  len(ds.Content),
		"rejected":   res.Rejected,
	})
}

func (s *Server) handleUploadDataset(c *gin.Context) {
	if s == nil || s.store == nil || s.config == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.TestCases) == 0 {
		respondError(c, http.StatusBadRequest, errors.New("missing test_cases"))
		return
	}

	outcome, err := dataset.ParseTestCases(string(req.TestCases), dataset.ParseOptions{
		AnswerField: dataset.AnswerActualOutput,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if len(outcome.Cases) == 0 {
		respondError(c, http.StatusBadRequest, errors.New("no valid test cases in payload"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "uploaded_dataset"
	}
	ds := &dataset.Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Content:   outcome.Cases,
	}
	if err := s.store.CreateDataset(c.Request.Context(), ds); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	resp := gin.H{
		"dataset_id": ds.ID,
		"name":       ds.Name,
		"num_cases":  len(ds.Content),
		"rejected":   outcome.Rejected,
	}

	if strings.EqualFold(strings.TrimSpace(c.Query("run_eval")), "true") {
		if s.engine == nil {
			respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
			return
		}
		run, err := s.engine.CreateRun(c.Request.Context(), ds.ID, s.config.Evaluation.Metrics)
		if err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
		s.dispatch(run.ID)
		resp["run_id"] = run.ID
		resp["run_status"] = run.Status
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleGetDataset(c *gin.Context) {
	if s == nil || s.store == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing dataset id"))
		return
	}

	ds, err := s.store.GetDataset(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, fmt.Errorf("dataset %q not found", id))
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         ds.ID,
		"name":       ds.Name,
		"created_at": ds.CreatedAt.UTC().Format(time.RFC3339),
		"test_cases": ds.Content,
	})
}

func (s *Server) handleStartEvaluation(c *gin.Context) {
	if s == nil || s.engine == nil || s.config == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	var req startEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	datasetID := strings.TrimSpace(req.DatasetID)
	if datasetID == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing dataset_id"))
		return
	}

	metricNames := req.Metrics
	if len(metricNames) == 0 {
		metricNames = s.config.Evaluation.Metrics
	}

	run, err := s.engine.CreateRun(c.Request.Context(), datasetID, metricNames)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, fmt.Errorf("dataset %q not found", datasetID))
			return
		}
		respondError(c, http.StatusBadRequest, err)
		return
	}

	s.dispatch(run.ID)

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":  run.ID,
		"status":  run.Status,
		"metrics": run.MetricsUsed,
	})
}

func (s *Server) handleGetEvaluation(c *gin.Context) {
	if s == nil || s.store == nil {
		respondError(c, http.StatusInternalServerError, errors.New("server not initialized"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing run id"))
		return
	}

	run, err := s.store.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, http.StatusNotFound, fmt.Errorf("run %q not found", id))
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	results, err := s.store.ListResults(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	rows := make([]resultRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, resultRow{
			Input:      truncate(r.Input, statusInputLimit),
			Output:     r.Output,
			MetricName: r.MetricName,
			Score:      r.Score,
			Reason:     r.Reason,
		})
	}

	resp := gin.H{
		"run_id":     run.ID,
		"dataset_id": run.DatasetID,
		"status":     run.Status,
		"metrics":    run.MetricsUsed,
		"created_at": run.CreatedAt.UTC().Format(time.RFC3339),
		"results":    rows,
		"analytics":  analytics.Summarize(run, results),
	}
	if run.FinishedAt != nil {
		resp["finished_at"] = run.FinishedAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTemplate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name": "my_dataset",
		"test_cases": []dataset.TestCase{
			{
				Input:            "What is the capital of France?",
				ActualOutput:     "The capital of France is Paris.",
				ExpectedOutput:   "Paris",
				RetrievalContext: []string{"France is a country in Western Europe. Its capital is Paris."},
				Context:          []string{"France is a country in Western Europe. Its capital is Paris."},
			},
		},
	})
}

func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		c.Status(status)
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
