package figures

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/ronbun/internal/models"
)

// FigureLookup serves figures recorded during ingestion, keyed by document
// and page range.
type FigureLookup interface {
	FiguresByPageRange(ctx context.Context, documentID string, lo, hi int) ([]models.ExtractedImage, error)
}

// Resolver links retrieval results to nearby figures. It only activates when
// the query expresses visual intent; otherwise it returns nothing.
type Resolver struct {
	lookup FigureLookup
	window int
	detect IntentDetector
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithIntentDetector replaces the default keyword detector.
func WithIntentDetector(detect IntentDetector) ResolverOption {
	return func(r *Resolver) { r.detect = detect }
}

// NewResolver returns a resolver matching figures within window pages of each
// result chunk.
func NewResolver(lookup FigureLookup, window int, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lookup: lookup,
		window: window,
		detect: KeywordIntent,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns up to maxFigures figures near the given results, ordered by
// the rank of the chunk that surfaced them and then by page distance. Each
// figure appears at most once even when several chunks reach it.
func (r *Resolver) Resolve(ctx context.Context, query string, results []*models.RetrievalResult, maxFigures int) ([]*models.FigureMatch, error) {
	if maxFigures <= 0 || len(results) == 0 || !r.detect(query) {
		return nil, nil
	}

	seen := make(map[string]bool)
	var matches []*models.FigureMatch
	for _, res := range results {
		pages := res.Chunk.Pages
		if len(pages) == 0 {
			continue
		}
		lo, hi := pages[0], pages[0]
		for _, p := range pages {
			if p < lo {
				lo = p
			}
			if p > hi {
				hi = p
			}
		}
		figs, err := r.lookup.FiguresByPageRange(ctx, res.Chunk.DocumentID, lo-r.window, hi+r.window)
		if err != nil {
			return nil, fmt.Errorf("figure lookup for %s: %w", res.Chunk.DocumentID, err)
		}
		for i := range figs {
			fig := figs[i]
			if seen[fig.Path] {
				continue
			}
			seen[fig.Path] = true
			matches = append(matches, &models.FigureMatch{
				Image:     &figs[i],
				Page:      fig.Page,
				Distance:  pageDistance(pages, fig.Page),
				ChunkRank: res.Rank,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].ChunkRank != matches[j].ChunkRank {
			return matches[i].ChunkRank < matches[j].ChunkRank
		}
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		if matches[i].Page != matches[j].Page {
			return matches[i].Page < matches[j].Page
		}
		return matches[i].Image.Index < matches[j].Image.Index
	})
	if len(matches) > maxFigures {
		matches = matches[:maxFigures]
	}
	return matches, nil
}

// pageDistance is the smallest gap between the figure's page and any page the
// chunk spans.
func pageDistance(chunkPages []int, figPage int) int {
	best := -1
	for _, p := range chunkPages {
		d := p - figPage
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
