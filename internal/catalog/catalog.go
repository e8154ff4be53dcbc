// Package catalog keeps the relational side of an ingested corpus: which
// figures were extracted from which page, and how each document fared during
// ingestion. It backs figure resolution with an indexed by-page lookup.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	state       TEXT NOT NULL,
	pages       INTEGER NOT NULL DEFAULT 0,
	chunks      INTEGER NOT NULL DEFAULT 0,
	figures     INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	ingested_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS figures (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL,
	page        INTEGER NOT NULL,
	idx         INTEGER NOT NULL,
	width       INTEGER NOT NULL,
	height      INTEGER NOT NULL,
	path        TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_figures_doc_page ON figures(document_id, page);
`

// SQLiteCatalog is the SQLite-backed catalog. One file, WAL mode.
type SQLiteCatalog struct {
	db     *sql.DB
	logger *zap.Logger
}

// Option configures a SQLiteCatalog.
type Option func(*SQLiteCatalog)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *SQLiteCatalog) { c.logger = logger }
}

// New opens (or creates) the catalog database at path.
func New(path string, opts ...Option) (*SQLiteCatalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	c := &SQLiteCatalog{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Clear removes every recorded figure and document.
func (c *SQLiteCatalog) Clear(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM figures`); err != nil {
		return fmt.Errorf("clear figures: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	return tx.Commit()
}

// RecordFigures inserts the extracted figures of one document.
func (c *SQLiteCatalog) RecordFigures(ctx context.Context, figures []models.ExtractedImage) error {
	if len(figures) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO figures (document_id, page, idx, width, height, path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			document_id = excluded.document_id,
			page = excluded.page,
			idx = excluded.idx,
			width = excluded.width,
			height = excluded.height`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, fig := range figures {
		if _, err := stmt.ExecContext(ctx, fig.DocumentID, fig.Page, fig.Index, fig.Width, fig.Height, fig.Path); err != nil {
			return fmt.Errorf("record figure %s: %w", fig.Path, err)
		}
	}
	return tx.Commit()
}

// RecordDocument upserts the ingest outcome for one document.
func (c *SQLiteCatalog) RecordDocument(ctx context.Context, status *models.DocumentStatus) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (id, path, state, pages, chunks, figures, error, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			state = excluded.state,
			pages = excluded.pages,
			chunks = excluded.chunks,
			figures = excluded.figures,
			error = excluded.error,
			ingested_at = excluded.ingested_at`,
		status.DocumentID, status.Path, string(status.State),
		status.Pages, status.Chunks, status.Figures, status.Error, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record document %s: %w", status.DocumentID, err)
	}
	return nil
}

// FiguresByPageRange returns the document's figures on pages [lo, hi],
// ordered by page then extraction index.
func (c *SQLiteCatalog) FiguresByPageRange(ctx context.Context, documentID string, lo, hi int) ([]models.ExtractedImage, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT document_id, page, idx, width, height, path
		FROM figures
		WHERE document_id = ? AND page BETWEEN ? AND ?
		ORDER BY page, idx`,
		documentID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query figures: %w", err)
	}
	defer rows.Close()

	var figures []models.ExtractedImage
	for rows.Next() {
		var fig models.ExtractedImage
		if err := rows.Scan(&fig.DocumentID, &fig.Page, &fig.Index, &fig.Width, &fig.Height, &fig.Path); err != nil {
			return nil, err
		}
		figures = append(figures, fig)
	}
	return figures, rows.Err()
}

// Documents returns every recorded document status, ordered by path.
func (c *SQLiteCatalog) Documents(ctx context.Context) ([]*models.DocumentStatus, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, path, state, pages, chunks, figures, error
		FROM documents
		ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.DocumentStatus
	for rows.Next() {
		var (
			d     models.DocumentStatus
			state string
		)
		if err := rows.Scan(&d.DocumentID, &d.Path, &state, &d.Pages, &d.Chunks, &d.Figures, &d.Error); err != nil {
			return nil, err
		}
		d.State = models.DocumentState(state)
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}
