// Package parse turns PDF files into ordered, page-tagged block sequences.
package parse

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/ronbun/internal/docid"
	"github.com/hyperjump/ronbun/internal/models"
)

// ParseError indicates that layout analysis of a PDF failed (malformed or
// encrypted input). It is fatal for that document but must never abort a
// multi-document batch.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseFailure reports whether err is (or wraps) a ParseError.
func IsParseFailure(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Parser extracts per-page text from PDFs and segments it into blocks.
type Parser struct{}

// NewParser returns a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the PDF at path and returns a SourceDocument whose pages are
// numbered 1..N, where N comes from the PDF's own page index. Pages that
// yield no text are kept (empty) so that numbering stays contiguous and both
// extraction passes agree on page counts.
func (p *Parser) Parse(path string) (*models.SourceDocument, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	f, err := os.Open(absPath)
	if err != nil {
		return nil, &ParseError{Path: absPath, Err: err}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, &ParseError{Path: absPath, Err: err}
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, &ParseError{Path: absPath, Err: fmt.Errorf("open PDF: %w", err)}
	}

	doc := &models.SourceDocument{
		ID:    docid.DocID(absPath),
		Path:  absPath,
		Title: filepath.Base(absPath),
	}
	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, &ParseError{Path: absPath, Err: fmt.Errorf("PDF has no pages")}
	}
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		text := ""
		if !page.V.IsNull() {
			text, err = page.GetPlainText(nil)
			if err != nil {
				return nil, &ParseError{Path: absPath, Err: fmt.Errorf("page %d: %w", i, err)}
			}
		}
		text = normalize(text)
		doc.Pages = append(doc.Pages, models.Page{
			Number: i,
			Text:   text,
			Blocks: SegmentBlocks(text),
		})
	}
	if err := doc.ValidatePages(); err != nil {
		return nil, &ParseError{Path: absPath, Err: err}
	}
	return doc, nil
}

// normalize collapses Windows line endings and trims trailing whitespace per
// line, leaving line structure intact for table detection.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
