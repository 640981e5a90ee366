package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stellarlinkco/rag-eval/internal/config"
	"github.com/stellarlinkco/rag-eval/internal/engine"
	"github.com/stellarlinkco/rag-eval/internal/generator"
	"github.com/stellarlinkco/rag-eval/internal/store"
)

type Server struct {
	router    *gin.Engine
	store     store.Store
	engine    *engine.Engine
	generator *generator.Generator
	config    *config.Config

	// dispatch runs an evaluation asynchronously; replaced in tests.
	dispatch func(runID string)
}

func NewServer(cfg *config.Config, st store.Store, eng *engine.Engine, gen *generator.Generator) (*Server, error) {
	r := gin.New()
	s := &Server{
		router:    r,
		store:     st,
		engine:    eng,
		generator: gen,
		config:    cfg,
	}
	s.dispatch = func(runID string) {
		go func() {
			_ = eng.Execute(context.Background(), runID)
		}()
	}
	s.registerMiddleware()
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Run(addr string) error {
	if s == nil || s.router == nil {
		return errors.New("api: nil server")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8080"
	}
	return s.router.Run(addr)
}
