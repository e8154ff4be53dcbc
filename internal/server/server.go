// Package server provides the HTTP API consumed by the external chat layer.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/ingest"
	"github.com/hyperjump/ronbun/internal/models"
)

// QueryEngine answers retrieval queries.
type QueryEngine interface {
	Answer(ctx context.Context, query string, topK, maxFigures int) (*models.QueryResponse, error)
}

// Ingestor runs and reports on ingestion batches.
type Ingestor interface {
	Run(ctx context.Context, roots ...string) (*models.IngestReport, error)
	Status() (ingest.Phase, *models.IngestReport)
}

// CorpusStatus exposes what is currently indexed.
type CorpusStatus interface {
	Documents(ctx context.Context) ([]*models.DocumentStatus, error)
}

// ChunkCounter reports the number of indexed chunks.
type ChunkCounter interface {
	Count() int
}

// Server is the Ronbun HTTP server.
type Server struct {
	engine     QueryEngine
	ingestor   Ingestor
	corpus     CorpusStatus
	chunks     ChunkCounter
	figuresDir string
	config     *config.ServerConfig
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine QueryEngine,
	ingestor Ingestor,
	corpus CorpusStatus,
	chunks ChunkCounter,
	figuresDir string,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:     engine,
		ingestor:   ingestor,
		corpus:     corpus,
		chunks:     chunks,
		figuresDir: figuresDir,
		config:     cfg,
		logger:     logger,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/ingest", s.handleIngest)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	// Extracted figures are served as-is so the chat UI can attach them.
	r.Handle("/figures/*", http.StripPrefix("/figures/", http.FileServer(http.Dir(s.figuresDir))))

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
