package models

import "time"

// DocumentState is the terminal state of one document within an ingest run.
type DocumentState string

const (
	DocumentIngested DocumentState = "ingested"
	DocumentFailed   DocumentState = "failed"
)

// DocumentStatus reports the outcome of ingesting a single document.
type DocumentStatus struct {
	DocumentID string        `json:"document_id"`
	Path       string        `json:"path"`
	State      DocumentState `json:"state"`
	Pages      int           `json:"pages"`
	Chunks     int           `json:"chunks"`
	Figures    int           `json:"figures"`
	Error      string        `json:"error,omitempty"`
}

// IngestReport summarizes a full ingest run. Per-document failures are
// collected here rather than aborting the batch.
type IngestReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Documents  []*DocumentStatus `json:"documents"`
}

// Failed returns the statuses of documents that did not ingest.
func (r *IngestReport) Failed() []*DocumentStatus {
	var out []*DocumentStatus
	for _, d := range r.Documents {
		if d.State == DocumentFailed {
			out = append(out, d)
		}
	}
	return out
}
