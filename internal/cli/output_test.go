package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/ronbun/internal/models"
)

func sampleResponse() *models.QueryResponse {
	return &models.QueryResponse{
		Query: "show me the diagram",
		Results: []*models.RetrievalResult{{
			Chunk: &models.Chunk{
				ID:         "chunk:a",
				DocumentID: "paper-1a2b3c4d",
				Text:       "The encoder stacks six identical layers.",
				Pages:      []int{3},
				Type:       models.BlockProse,
			},
			Similarity: 0.87,
			Rank:       1,
		}},
		Figures: []*models.FigureMatch{{
			Image: &models.ExtractedImage{
				DocumentID: "paper-1a2b3c4d",
				Page:       3, Width: 640, Height: 480,
				Path: "/figs/paper-1a2b3c4d/3/0.png",
			},
			Page: 3, ChunkRank: 1,
		}},
		QueryTime: 12,
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != OutputText {
		t.Errorf("empty = %v, %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != OutputJSON {
		t.Errorf("json = %v, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteQueryResponse_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResponse(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Rank: 1", "paper-1a2b3c4d", "encoder stacks", "/figs/paper-1a2b3c4d/3/0.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteQueryResponse_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResponse(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var got models.QueryResponse
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].Chunk.ID != "chunk:a" {
		t.Errorf("round-trip lost data: %+v", got)
	}
}

func TestWriteIngestReport_Text(t *testing.T) {
	now := time.Now()
	report := &models.IngestReport{
		RunID:      "run-1",
		StartedAt:  now,
		FinishedAt: now.Add(2 * time.Second),
		Documents: []*models.DocumentStatus{
			{DocumentID: "d1", Path: "/in/a.pdf", State: models.DocumentIngested, Pages: 9, Chunks: 31, Figures: 2},
			{DocumentID: "d2", Path: "/in/b.pdf", State: models.DocumentFailed, Error: "malformed xref"},
		},
	}
	var buf bytes.Buffer
	if err := WriteIngestReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 document(s), 1 failed") {
		t.Errorf("summary wrong:\n%s", out)
	}
	if !strings.Contains(out, "FAILED") || !strings.Contains(out, "malformed xref") {
		t.Errorf("failure line missing:\n%s", out)
	}
	if !strings.Contains(out, "31 chunk(s)") {
		t.Errorf("counters missing:\n%s", out)
	}
}
