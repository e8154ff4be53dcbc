package figures

import (
	"context"
	"testing"

	"github.com/hyperjump/ronbun/internal/models"
)

type memLookup struct {
	figures map[string][]models.ExtractedImage
}

func (m *memLookup) FiguresByPageRange(_ context.Context, documentID string, lo, hi int) ([]models.ExtractedImage, error) {
	var out []models.ExtractedImage
	for _, fig := range m.figures[documentID] {
		if fig.Page >= lo && fig.Page <= hi {
			out = append(out, fig)
		}
	}
	return out, nil
}

func fig(doc string, page, index int) models.ExtractedImage {
	return models.ExtractedImage{
		DocumentID: doc,
		Page:       page,
		Index:      index,
		Width:      640,
		Height:     480,
		Path:       "/figs/" + doc + "/" + string(rune('0'+page)) + "/" + string(rune('0'+index)) + ".png",
	}
}

func result(doc string, rank int, pages ...int) *models.RetrievalResult {
	return &models.RetrievalResult{
		Chunk: &models.Chunk{
			ID:         models.ChunkID(doc, rank, "text"),
			DocumentID: doc,
			Pages:      pages,
		},
		Rank: rank,
	}
}

func TestResolve_NoVisualIntentReturnsNothing(t *testing.T) {
	lookup := &memLookup{figures: map[string][]models.ExtractedImage{
		"paper-a": {fig("paper-a", 3, 0)},
	}}
	r := NewResolver(lookup, 1)
	matches, err := r.Resolve(context.Background(), "training loss over epochs", []*models.RetrievalResult{result("paper-a", 1, 3)}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no figures without visual intent, got %d", len(matches))
	}
}

func TestResolve_AdjacencyWindow(t *testing.T) {
	lookup := &memLookup{figures: map[string][]models.ExtractedImage{
		"paper-a": {
			fig("paper-a", 2, 0),
			fig("paper-a", 4, 0),
			fig("paper-a", 9, 0),
		},
	}}
	r := NewResolver(lookup, 1)
	matches, err := r.Resolve(context.Background(), "show me the diagram", []*models.RetrievalResult{result("paper-a", 1, 3)}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected figures on pages 2 and 4 only, got %d: %+v", len(matches), matches)
	}
	for _, m := range matches {
		if m.Page == 9 {
			t.Error("page 9 is outside the adjacency window")
		}
		if m.Distance != 1 {
			t.Errorf("distance = %d, want 1", m.Distance)
		}
	}
}

func TestResolve_OrderedByChunkRankThenDistance(t *testing.T) {
	lookup := &memLookup{figures: map[string][]models.ExtractedImage{
		"paper-a": {fig("paper-a", 5, 0), fig("paper-a", 6, 0)},
		"paper-b": {fig("paper-b", 1, 0)},
	}}
	r := NewResolver(lookup, 1)
	results := []*models.RetrievalResult{
		result("paper-a", 1, 5),
		result("paper-b", 2, 1),
	}
	matches, err := r.Resolve(context.Background(), "figure of the pipeline", results, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches", len(matches))
	}
	if matches[0].Image.DocumentID != "paper-a" || matches[0].Page != 5 {
		t.Errorf("first match should be same-page figure from top chunk: %+v", matches[0])
	}
	if matches[1].Image.DocumentID != "paper-a" || matches[1].Page != 6 {
		t.Errorf("second match should be adjacent figure from top chunk: %+v", matches[1])
	}
	if matches[2].Image.DocumentID != "paper-b" {
		t.Errorf("lower-ranked chunk's figure should come last: %+v", matches[2])
	}
}

func TestResolve_DeduplicatesAcrossChunks(t *testing.T) {
	lookup := &memLookup{figures: map[string][]models.ExtractedImage{
		"paper-a": {fig("paper-a", 3, 0)},
	}}
	r := NewResolver(lookup, 1)
	results := []*models.RetrievalResult{
		result("paper-a", 1, 3),
		result("paper-a", 2, 4),
	}
	matches, err := r.Resolve(context.Background(), "show me the plot", results, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("figure reached by two chunks should appear once, got %d", len(matches))
	}
	if matches[0].ChunkRank != 1 {
		t.Errorf("kept match should credit the higher-ranked chunk, got rank %d", matches[0].ChunkRank)
	}
}

func TestResolve_CapsAtMaxFigures(t *testing.T) {
	lookup := &memLookup{figures: map[string][]models.ExtractedImage{
		"paper-a": {
			fig("paper-a", 3, 0),
			fig("paper-a", 3, 1),
			fig("paper-a", 3, 2),
			fig("paper-a", 3, 3),
		},
	}}
	r := NewResolver(lookup, 0)
	matches, err := r.Resolve(context.Background(), "images please", []*models.RetrievalResult{result("paper-a", 1, 3)}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Errorf("expected cap of 3, got %d", len(matches))
	}
}

func TestResolve_CustomDetector(t *testing.T) {
	lookup := &memLookup{figures: map[string][]models.ExtractedImage{
		"paper-a": {fig("paper-a", 3, 0)},
	}}
	always := func(string) bool { return true }
	r := NewResolver(lookup, 1, WithIntentDetector(always))
	matches, err := r.Resolve(context.Background(), "no cue words here", []*models.RetrievalResult{result("paper-a", 1, 3)}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("custom detector should have activated resolution, got %d matches", len(matches))
	}
}
