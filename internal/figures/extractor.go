// Package figures extracts embedded images from PDFs and resolves figure
// references for retrieval results.
package figures

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/models"
)

// ExtractionError indicates that image extraction failed for one document.
// The document's text can still be ingested; a batch never aborts on it.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract images from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsExtractionFailure reports whether err is (or wraps) an ExtractionError.
func IsExtractionFailure(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

// Extractor pulls embedded raster images out of PDFs and files them on disk
// under figuresDir/{docID}/{page}/{index}.{ext}.
type Extractor struct {
	figuresDir string
	filter     *Filter
	logger     *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorLogger sets the logger.
func WithExtractorLogger(logger *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = logger }
}

// NewExtractor returns an extractor writing under figuresDir.
func NewExtractor(figuresDir string, filter *Filter, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		figuresDir: figuresDir,
		filter:     filter,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the PDF at path and writes every kept embedded image to the
// figures directory, keyed by docID. The document's figure subtree is removed
// first so re-extraction replaces rather than accumulates. Page numbers
// follow the PDF's own 1-based page index, the same numbering the text
// parser produces.
func (e *Extractor) Extract(path, docID string) ([]models.ExtractedImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	docDir := filepath.Join(e.figuresDir, docID)
	if err := os.RemoveAll(docDir); err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	var (
		images  []models.ExtractedImage
		perPage = make(map[int]int)
		dropped int
	)
	digest := func(img pdfmodel.Image, _ bool, _ int) error {
		data, err := io.ReadAll(img)
		if err != nil {
			return err
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			// Undecodable payloads (masks, exotic color spaces) are
			// treated as junk, not as extraction failure.
			dropped++
			return nil
		}
		if !e.filter.Keep(cfg.Width, cfg.Height) {
			dropped++
			return nil
		}
		idx := perPage[img.PageNr]
		perPage[img.PageNr] = idx + 1

		ext := strings.ToLower(strings.TrimPrefix(img.FileType, "."))
		if ext == "" {
			ext = "png"
		}
		dir := filepath.Join(docDir, strconv.Itoa(img.PageNr))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		dest := filepath.Join(dir, fmt.Sprintf("%d.%s", idx, ext))
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return err
		}
		images = append(images, models.ExtractedImage{
			DocumentID: docID,
			Page:       img.PageNr,
			Index:      idx,
			Width:      cfg.Width,
			Height:     cfg.Height,
			Path:       dest,
		})
		return nil
	}

	conf := pdfmodel.NewDefaultConfiguration()
	if err := api.ExtractImages(f, nil, digest, conf); err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	sort.Slice(images, func(i, j int) bool {
		if images[i].Page != images[j].Page {
			return images[i].Page < images[j].Page
		}
		return images[i].Index < images[j].Index
	})
	e.logger.Debug("extracted figures",
		zap.String("doc_id", docID),
		zap.Int("kept", len(images)),
		zap.Int("dropped", dropped))
	return images, nil
}
