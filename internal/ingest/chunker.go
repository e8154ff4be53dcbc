// Package ingest turns parsed documents into embedded, persisted chunks and
// coordinates batch ingestion runs.
package ingest

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hyperjump/ronbun/internal/models"
)

// Chunker packs block sequences into retrieval chunks of at most maxChars
// characters. Prose is packed sentence by sentence; tables and equations are
// atomic and always become chunks of their own, even when oversized.
type Chunker struct {
	maxChars int
}

// NewChunker returns a chunker with the given character budget (512 when
// maxChars <= 0).
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = 512
	}
	return &Chunker{maxChars: maxChars}
}

// Chunk converts doc's pages into an ordered chunk sequence. Each chunk
// carries the sorted set of pages its text came from; a prose chunk that
// straddles a page break is tagged with both pages. Chunk IDs are derived
// from document ID, index, and text, so an unchanged document always
// re-chunks to identical IDs.
func (c *Chunker) Chunk(doc *models.SourceDocument) []models.Chunk {
	var (
		chunks []models.Chunk
		parts  []string
		pages  = make(map[int]bool)
		size   int
	)
	emit := func(text string, pageSet map[int]bool, typ models.BlockType) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		idx := len(chunks)
		chunks = append(chunks, models.Chunk{
			ID:         models.ChunkID(doc.ID, idx, text),
			DocumentID: doc.ID,
			Index:      idx,
			Text:       text,
			Pages:      sortedPages(pageSet),
			Type:       typ,
		})
	}
	flushProse := func() {
		if len(parts) == 0 {
			return
		}
		emit(strings.Join(parts, " "), pages, models.BlockProse)
		parts = nil
		pages = make(map[int]bool)
		size = 0
	}

	for _, page := range doc.Pages {
		for _, block := range page.Blocks {
			if block.Atomic() {
				flushProse()
				emit(block.Text, map[int]bool{page.Number: true}, block.Type)
				continue
			}
			for _, sent := range splitSentences(block.Text) {
				add := len(sent)
				if len(parts) > 0 {
					add++ // joining space
				}
				if size+add > c.maxChars && len(parts) > 0 {
					flushProse()
					add = len(sent)
				}
				parts = append(parts, sent)
				pages[page.Number] = true
				size += add
			}
		}
	}
	flushProse()
	return chunks
}

// splitSentences splits prose into sentences on terminal punctuation followed
// by whitespace, collapsing internal whitespace. Text without terminal
// punctuation comes back as a single sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sents []string
	appendSent := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			sents = append(sents, s)
		}
	}
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			appendSent(string(runes[start : i+1]))
			start = i + 1
		}
	}
	if start < len(runes) {
		appendSent(string(runes[start:]))
	}
	return sents
}

func sortedPages(set map[int]bool) []int {
	pages := make([]int, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
