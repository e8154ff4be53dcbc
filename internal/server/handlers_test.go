package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/ingest"
	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/internal/retrieval"
)

type fakeEngine struct {
	resp *models.QueryResponse
	err  error
}

func (f *fakeEngine) Answer(_ context.Context, query string, _, _ int) (*models.QueryResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &retrieval.QueryError{Query: query, Err: retrieval.ErrEmptyQuery}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeIngestor struct {
	report *models.IngestReport
	err    error
	phase  ingest.Phase
}

func (f *fakeIngestor) Run(context.Context, ...string) (*models.IngestReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeIngestor) Status() (ingest.Phase, *models.IngestReport) {
	return f.phase, f.report
}

type fakeCorpus struct {
	docs []*models.DocumentStatus
	err  error
}

func (f *fakeCorpus) Documents(context.Context) ([]*models.DocumentStatus, error) {
	return f.docs, f.err
}

type fakeCounter int

func (f fakeCounter) Count() int { return int(f) }

func newTestServer(t *testing.T, engine QueryEngine, ingestor Ingestor, corpus CorpusStatus, chunks ChunkCounter, figuresDir string) *httptest.Server {
	t.Helper()
	s := NewServer(engine, ingestor, corpus, chunks, figuresDir,
		&config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop())
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestHandleQuery(t *testing.T) {
	engine := &fakeEngine{resp: &models.QueryResponse{
		Query: "show me the figure",
		Results: []*models.RetrievalResult{{
			Chunk:      &models.Chunk{ID: "chunk:a", DocumentID: "d1", Text: "attention is computed", Pages: []int{3}},
			Similarity: 0.88,
			Rank:       1,
		}},
		Figures: []*models.FigureMatch{{
			Image: &models.ExtractedImage{DocumentID: "d1", Page: 3, Path: "/figs/d1/3/0.png"},
			Page:  3, ChunkRank: 1,
		}},
	}}
	ts := newTestServer(t, engine, &fakeIngestor{}, &fakeCorpus{}, fakeCounter(0), t.TempDir())

	resp := postJSON(t, ts.URL+"/api/v1/query", models.QueryRequest{Query: "show me the figure"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Results) != 1 || got.Results[0].Chunk.ID != "chunk:a" {
		t.Errorf("results = %+v", got.Results)
	}
	if len(got.Figures) != 1 || got.Figures[0].Image.Path != "/figs/d1/3/0.png" {
		t.Errorf("figures = %+v", got.Figures)
	}
}

func TestHandleQuery_EmptyQueryIsBadRequest(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, &fakeIngestor{}, &fakeCorpus{}, fakeCounter(0), t.TempDir())
	resp := postJSON(t, ts.URL+"/api/v1/query", models.QueryRequest{Query: "  "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleQuery_InvalidBody(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, &fakeIngestor{}, &fakeCorpus{}, fakeCounter(0), t.TempDir())
	resp, err := http.Post(ts.URL+"/api/v1/query", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleQuery_EngineFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("store corrupted")}
	ts := newTestServer(t, engine, &fakeIngestor{}, &fakeCorpus{}, fakeCounter(0), t.TempDir())
	resp := postJSON(t, ts.URL+"/api/v1/query", models.QueryRequest{Query: "anything"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHandleIngest(t *testing.T) {
	ingestor := &fakeIngestor{report: &models.IngestReport{
		RunID: "run-1",
		Documents: []*models.DocumentStatus{
			{DocumentID: "d1", Path: "/in/a.pdf", State: models.DocumentIngested, Chunks: 12},
		},
	}}
	ts := newTestServer(t, &fakeEngine{}, ingestor, &fakeCorpus{}, fakeCounter(0), t.TempDir())

	resp, err := http.Post(ts.URL+"/api/v1/ingest", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var report models.IngestReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.RunID != "run-1" || len(report.Documents) != 1 {
		t.Errorf("report = %+v", report)
	}
}

// cancelingIngestor cancels the request's context before checking its own,
// simulating a client disconnect (or the middleware timeout firing) while a
// rebuild is in flight.
type cancelingIngestor struct {
	cancel context.CancelFunc
	report *models.IngestReport
}

func (f *cancelingIngestor) Run(ctx context.Context, _ ...string) (*models.IngestReport, error) {
	f.cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.report, nil
}

func (f *cancelingIngestor) Status() (ingest.Phase, *models.IngestReport) {
	return ingest.PhaseIdle, nil
}

func TestHandleIngest_SurvivesRequestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ingestor := &cancelingIngestor{cancel: cancel, report: &models.IngestReport{RunID: "run-2"}}
	s := NewServer(&fakeEngine{}, ingestor, &fakeCorpus{}, fakeCounter(0), t.TempDir(),
		&config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; the run must not inherit the request's cancellation", rec.Code)
	}
}

func TestHandleIngest_BusyIsConflict(t *testing.T) {
	ingestor := &fakeIngestor{err: ingest.ErrRunInProgress}
	ts := newTestServer(t, &fakeEngine{}, ingestor, &fakeCorpus{}, fakeCounter(0), t.TempDir())
	resp, err := http.Post(ts.URL+"/api/v1/ingest", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestHandleStatus(t *testing.T) {
	corpus := &fakeCorpus{docs: []*models.DocumentStatus{
		{DocumentID: "d1", State: models.DocumentIngested},
		{DocumentID: "d2", State: models.DocumentIngested},
		{DocumentID: "d3", State: models.DocumentFailed, Error: "malformed"},
	}}
	ingestor := &fakeIngestor{phase: ingest.PhaseDone, report: &models.IngestReport{RunID: "run-9"}}
	ts := newTestServer(t, &fakeEngine{}, ingestor, corpus, fakeCounter(42), t.TempDir())

	resp, err := http.Get(ts.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["documents"] != float64(2) || got["failed"] != float64(1) || got["chunks"] != float64(42) {
		t.Errorf("status payload = %v", got)
	}
	if got["phase"] != string(ingest.PhaseDone) {
		t.Errorf("phase = %v", got["phase"])
	}
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, &fakeEngine{}, &fakeIngestor{}, &fakeCorpus{}, fakeCounter(0), t.TempDir())
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestFiguresStaticServing(t *testing.T) {
	figuresDir := t.TempDir()
	figPath := filepath.Join(figuresDir, "d1", "3")
	if err := os.MkdirAll(figPath, 0755); err != nil {
		t.Fatal(err)
	}
	payload := []byte{0x89, 'P', 'N', 'G'}
	if err := os.WriteFile(filepath.Join(figPath, "0.png"), payload, 0644); err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, &fakeEngine{}, &fakeIngestor{}, &fakeCorpus{}, fakeCounter(0), figuresDir)

	resp, err := http.Get(ts.URL + "/figures/d1/3/0.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/figures/d1/3/missing.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("missing figure status = %d, want 404", resp2.StatusCode)
	}
}
