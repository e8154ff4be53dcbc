// Package retrieval answers queries against the ingested corpus: embed the
// query, rank similar chunks, and attach nearby figures when the query asks
// for visual material.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/models"
)

// ErrEmptyQuery is returned for queries with no content.
var ErrEmptyQuery = errors.New("empty query")

// QueryError wraps a retrieval failure. Queries either answer completely or
// fail; partial results are never returned.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// IsQueryFailure reports whether err is (or wraps) a QueryError.
func IsQueryFailure(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// Embedder is the query-side embedding surface. It must be the same model
// the corpus was ingested with.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store serves similarity queries over indexed chunks.
type Store interface {
	Query(ctx context.Context, vector []float32, k int) ([]*models.RetrievalResult, error)
}

// FigureResolver attaches figures to ranked results.
type FigureResolver interface {
	Resolve(ctx context.Context, query string, results []*models.RetrievalResult, maxFigures int) ([]*models.FigureMatch, error)
}

// Engine is the retrieval pipeline: embed, search, threshold, resolve.
type Engine struct {
	embedder Embedder
	store    Store
	resolver FigureResolver

	topK          int
	maxFigures    int
	minSimilarity float64
	logger        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine wires a retrieval engine with the query-time settings from cfg.
func NewEngine(embedder Embedder, store Store, resolver FigureResolver, cfg config.RetrievalConfig, opts ...Option) *Engine {
	e := &Engine{
		embedder:      embedder,
		store:         store,
		resolver:      resolver,
		topK:          cfg.TopK,
		maxFigures:    cfg.MaxFigures,
		minSimilarity: cfg.MinSimilarity,
		logger:        zap.NewNop(),
	}
	if e.topK <= 0 {
		e.topK = 5
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve returns the topK chunks most similar to query, re-ranked 1..n
// after dropping hits below the similarity floor. topK <= 0 uses the
// configured default.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]*models.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &QueryError{Query: query, Err: ErrEmptyQuery}
	}
	if topK <= 0 {
		topK = e.topK
	}
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &QueryError{Query: query, Err: fmt.Errorf("embed query: %w", err)}
	}
	hits, err := e.store.Query(ctx, vector, topK)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}

	var results []*models.RetrievalResult
	for _, hit := range hits {
		if hit.Similarity < e.minSimilarity {
			continue
		}
		results = append(results, hit)
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	return results, nil
}

// Answer runs the full query path: retrieval plus figure resolution. topK and
// maxFigures <= 0 use the configured defaults.
func (e *Engine) Answer(ctx context.Context, query string, topK, maxFigures int) (*models.QueryResponse, error) {
	start := time.Now()
	results, err := e.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	if maxFigures <= 0 {
		maxFigures = e.maxFigures
	}
	var figs []*models.FigureMatch
	if e.resolver != nil {
		figs, err = e.resolver.Resolve(ctx, query, results, maxFigures)
		if err != nil {
			return nil, &QueryError{Query: query, Err: err}
		}
	}
	elapsed := time.Since(start)
	e.logger.Debug("answered query",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Int("figures", len(figs)),
		zap.Duration("elapsed", elapsed))
	return &models.QueryResponse{
		Query:     query,
		Results:   results,
		Figures:   figs,
		QueryTime: elapsed.Milliseconds(),
	}, nil
}
