package api

import (
	"errors"
	"os"
	"strings"
)

func (s *Server) registerRoutes() error {
	if s == nil || s.router == nil {
		return nil
	}

	api := s.router.Group("/api/v1")
	apiKey := strings.TrimSpace(os.Getenv("RAG_EVAL_API_KEY"))
	if apiKey != "" {
		api.Use(apiKeyAuthMiddleware(apiKey))
	} else if strings.EqualFold(strings.TrimSpace(os.Getenv("RAG_EVAL_DISABLE_AUTH")), "true") {
		// Explicitly allow unauthenticated access.
	} else {
		return errors.New("api: missing auth configuration: set RAG_EVAL_API_KEY or set RAG_EVAL_DISABLE_AUTH=true")
	}

	api.GET("/health", s.handleHealth)

	api.POST("/datasets/generate", s.handleGenerateDataset)
	api.POST("/datasets/upload", s.handleUploadDataset)
	api.GET("/datasets/:id", s.handleGetDataset)

	api.POST("/evaluations/run", s.handleStartEvaluation)
	api.GET("/evaluations/:id", s.handleGetEvaluation)

	api.GET("/template", s.handleTemplate)

	return nil
}
