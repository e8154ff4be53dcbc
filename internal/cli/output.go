// Package cli provides CLI output helpers for Ronbun.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/pkg/utils"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteQueryResponse writes a query response to w in the given format.
func WriteQueryResponse(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	writeQueryResponseText(w, response)
	return nil
}

func writeQueryResponseText(w io.Writer, response *models.QueryResponse) {
	fmt.Fprintf(w, "\nFound %d chunk(s) in %dms\n\n", len(response.Results), response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Similarity: %.4f\n", result.Rank, result.Similarity)
		fmt.Fprintf(w, "Document: %s | Pages: %v | Type: %s\n",
			result.Chunk.DocumentID, result.Chunk.Pages, result.Chunk.Type)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Chunk.Text, 300))
	}
	if len(response.Figures) > 0 {
		fmt.Fprintln(w, "--- Figures ---")
		for _, fig := range response.Figures {
			fmt.Fprintf(w, "page %d (%dx%d): %s\n",
				fig.Page, fig.Image.Width, fig.Image.Height, fig.Image.Path)
		}
	}
}

// WriteIngestReport writes an ingest report to w in the given format.
func WriteIngestReport(w io.Writer, report *models.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	writeIngestReportText(w, report)
	return nil
}

func writeIngestReportText(w io.Writer, report *models.IngestReport) {
	elapsed := report.FinishedAt.Sub(report.StartedAt)
	failed := report.Failed()
	fmt.Fprintf(w, "Ingest run %s: %d document(s), %d failed, took %s\n",
		report.RunID, len(report.Documents), len(failed), elapsed.Round(time.Millisecond))
	for _, d := range report.Documents {
		if d.State == models.DocumentFailed {
			fmt.Fprintf(w, "  FAILED  %s: %s\n", d.Path, d.Error)
			continue
		}
		fmt.Fprintf(w, "  ok      %s: %d page(s), %d chunk(s), %d figure(s)\n",
			d.Path, d.Pages, d.Chunks, d.Figures)
	}
}
