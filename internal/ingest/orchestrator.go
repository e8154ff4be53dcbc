package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/ronbun/internal/docid"
	"github.com/hyperjump/ronbun/internal/models"
)

// Phase is the orchestrator's position in an ingest run.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseClearing   Phase = "clearing"
	PhaseParsing    Phase = "parsing"
	PhaseChunking   Phase = "chunking"
	PhaseEmbedding  Phase = "embedding"
	PhasePersisting Phase = "persisting"
	PhaseDone       Phase = "done"
)

// Parser turns a PDF file into a parsed document.
type Parser interface {
	Parse(path string) (*models.SourceDocument, error)
}

// Extractor pulls embedded images out of a PDF file.
type Extractor interface {
	Extract(path, docID string) ([]models.ExtractedImage, error)
}

// Embedder computes chunk vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the vector store surface the orchestrator writes to.
type Store interface {
	Clear(ctx context.Context) error
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
}

// Catalog records figures and per-document outcomes.
type Catalog interface {
	Clear(ctx context.Context) error
	RecordFigures(ctx context.Context, figures []models.ExtractedImage) error
	RecordDocument(ctx context.Context, status *models.DocumentStatus) error
}

// Deps are the pipeline stages the orchestrator drives.
type Deps struct {
	Parser    Parser
	Extractor Extractor
	Chunker   *Chunker
	Embedder  Embedder
	Store     Store
	Catalog   Catalog
}

// Orchestrator runs full clear-and-rebuild ingestion batches. A run clears
// the vector store and catalog, then pushes every document through
// parse/extract, chunk, embed, and persist. Document-level parse and
// extraction failures are recorded and skipped; embedding and store failures
// abort the run.
type Orchestrator struct {
	deps       Deps
	inputDir   string
	figuresDir string
	workers    int
	debug      bool
	logger     *zap.Logger

	mu         sync.Mutex
	running    bool
	phase      Phase
	lastReport *models.IngestReport
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithDebugDumps enables JSON dumps of parsed page content next to each
// document's extracted figures.
func WithDebugDumps() Option {
	return func(o *Orchestrator) { o.debug = true }
}

// NewOrchestrator wires an orchestrator. inputDir is the default batch root;
// figuresDir is where debug dumps land; workers bounds document-level
// concurrency.
func NewOrchestrator(deps Deps, inputDir, figuresDir string, workers int, opts ...Option) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	o := &Orchestrator{
		deps:       deps,
		inputDir:   inputDir,
		figuresDir: figuresDir,
		workers:    workers,
		phase:      PhaseIdle,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the current phase and the report of the last finished run,
// if any.
func (o *Orchestrator) Status() (Phase, *models.IngestReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase, o.lastReport
}

// docResult carries one document through the run's phases.
type docResult struct {
	path    string
	doc     *models.SourceDocument
	figures []models.ExtractedImage
	chunks  []models.Chunk
	vectors [][]float32
	status  *models.DocumentStatus
}

// Run executes one full ingest over roots (files or directories; the
// configured input directory when empty). Only one run may be active at a
// time.
func (o *Orchestrator) Run(ctx context.Context, roots ...string) (*models.IngestReport, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.running = true
	o.phase = PhaseClearing
	o.mu.Unlock()

	report, err := o.run(ctx, roots)

	o.mu.Lock()
	o.running = false
	if err != nil {
		o.phase = PhaseIdle
	} else {
		o.phase = PhaseDone
		o.lastReport = report
	}
	o.mu.Unlock()
	return report, err
}

func (o *Orchestrator) run(ctx context.Context, roots []string) (*models.IngestReport, error) {
	if len(roots) == 0 {
		roots = []string{o.inputDir}
	}
	paths, err := listPDFs(roots)
	if err != nil {
		return nil, err
	}
	report := &models.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	o.logger.Info("starting ingest run",
		zap.String("run_id", report.RunID),
		zap.Int("documents", len(paths)))

	// Full rebuild: drop everything before writing anything.
	if err := o.deps.Store.Clear(ctx); err != nil {
		return nil, &StoreError{Err: err}
	}
	if err := o.deps.Catalog.Clear(ctx); err != nil {
		return nil, &StoreError{Err: err}
	}
	o.clearFigures()

	o.setPhase(PhaseParsing)
	results := make([]*docResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = o.processDocument(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.setPhase(PhaseChunking)
	for _, res := range results {
		if res.status.State == models.DocumentFailed {
			continue
		}
		res.chunks = o.deps.Chunker.Chunk(res.doc)
		res.status.Chunks = len(res.chunks)
	}

	o.setPhase(PhaseEmbedding)
	for _, res := range results {
		if res.status.State == models.DocumentFailed || len(res.chunks) == 0 {
			continue
		}
		texts := make([]string, len(res.chunks))
		for i, ch := range res.chunks {
			texts[i] = ch.Text
		}
		vectors, err := o.deps.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, &EmbeddingError{DocumentID: res.status.DocumentID, Err: err}
		}
		res.vectors = vectors
	}

	o.setPhase(PhasePersisting)
	for _, res := range results {
		report.Documents = append(report.Documents, res.status)
		if res.status.State == models.DocumentFailed {
			if err := o.deps.Catalog.RecordDocument(ctx, res.status); err != nil {
				return nil, &StoreError{DocumentID: res.status.DocumentID, Err: err}
			}
			continue
		}
		if len(res.chunks) > 0 {
			if err := o.deps.Store.Upsert(ctx, res.chunks, res.vectors); err != nil {
				return nil, &StoreError{DocumentID: res.status.DocumentID, Err: err}
			}
		}
		if len(res.figures) > 0 {
			if err := o.deps.Catalog.RecordFigures(ctx, res.figures); err != nil {
				return nil, &StoreError{DocumentID: res.status.DocumentID, Err: err}
			}
		}
		if err := o.deps.Catalog.RecordDocument(ctx, res.status); err != nil {
			return nil, &StoreError{DocumentID: res.status.DocumentID, Err: err}
		}
	}

	report.FinishedAt = time.Now()
	o.logger.Info("ingest run finished",
		zap.String("run_id", report.RunID),
		zap.Int("ingested", len(report.Documents)-len(report.Failed())),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// processDocument parses text and extracts images concurrently for one file.
// A parse failure marks the document failed; an extraction failure only
// drops its figures.
func (o *Orchestrator) processDocument(ctx context.Context, path string) *docResult {
	res := &docResult{path: path}
	id := docid.DocID(path)
	res.status = &models.DocumentStatus{DocumentID: id, Path: path}

	var (
		doc        *models.SourceDocument
		figures    []models.ExtractedImage
		extractErr error
	)
	ig, _ := errgroup.WithContext(ctx)
	ig.Go(func() error {
		d, err := o.deps.Parser.Parse(path)
		if err != nil {
			return err
		}
		doc = d
		return nil
	})
	ig.Go(func() error {
		figs, err := o.deps.Extractor.Extract(path, id)
		if err != nil {
			extractErr = err
			return nil
		}
		figures = figs
		return nil
	})
	if err := ig.Wait(); err != nil {
		o.logger.Warn("document failed to parse", zap.String("path", path), zap.Error(err))
		// The extractor may have written images before the parse failed;
		// a failed document must leave nothing behind the figures route.
		if rmErr := os.RemoveAll(filepath.Join(o.figuresDir, id)); rmErr != nil {
			o.logger.Warn("figures cleanup failed", zap.String("doc_id", id), zap.Error(rmErr))
		}
		res.status.State = models.DocumentFailed
		res.status.Error = err.Error()
		return res
	}
	if extractErr != nil {
		o.logger.Warn("image extraction failed, ingesting text only",
			zap.String("path", path), zap.Error(extractErr))
		figures = nil
	}

	res.doc = doc
	res.figures = figures
	res.status.DocumentID = doc.ID
	res.status.State = models.DocumentIngested
	res.status.Pages = len(doc.Pages)
	res.status.Figures = len(figures)
	if o.debug {
		o.writeDebugDump(doc)
	}
	return res
}

// writeDebugDump saves a JSON summary of the parsed pages next to the
// document's figures, for inspecting what the parser saw.
func (o *Orchestrator) writeDebugDump(doc *models.SourceDocument) {
	dir := filepath.Join(o.figuresDir, doc.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		o.logger.Warn("debug dump failed", zap.String("doc_id", doc.ID), zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		o.logger.Warn("debug dump failed", zap.String("doc_id", doc.ID), zap.Error(err))
		return
	}
	path := filepath.Join(dir, "extracted.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		o.logger.Warn("debug dump failed", zap.String("doc_id", doc.ID), zap.Error(err))
	}
}

// clearFigures drops previously extracted figure trees so a rebuild never
// serves images for documents that are gone from the corpus.
func (o *Orchestrator) clearFigures() {
	entries, err := os.ReadDir(o.figuresDir)
	if err != nil {
		if !os.IsNotExist(err) {
			o.logger.Warn("figures cleanup failed", zap.Error(err))
		}
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(o.figuresDir, entry.Name())); err != nil {
			o.logger.Warn("figures cleanup failed", zap.String("entry", entry.Name()), zap.Error(err))
		}
	}
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// listPDFs expands files and directories into a sorted, deduplicated list of
// PDF paths. Directories are walked recursively.
func listPDFs(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if !seen[abs] {
			seen[abs] = true
			paths = append(paths, abs)
		}
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", root, err)
		}
		if !info.IsDir() {
			if isPDF(root) {
				add(root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isPDF(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
