// Package models defines core data structures for documents, chunks, figures, and query results.
package models

import "fmt"

// BlockType classifies a parsed block of page content.
type BlockType string

const (
	BlockProse    BlockType = "prose"
	BlockTable    BlockType = "table"
	BlockEquation BlockType = "equation"
)

// Block is a contiguous span of page content. Table and equation blocks are
// atomic: the chunker must never split them.
type Block struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
}

// Atomic reports whether the block must be kept whole during chunking.
func (b *Block) Atomic() bool {
	return b.Type == BlockTable || b.Type == BlockEquation
}

// Page is one page of a parsed document. Number is 1-based.
type Page struct {
	Number int     `json:"number"`
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// SourceDocument is a parsed input PDF: a stable ID plus its ordered pages.
type SourceDocument struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title"`
	Pages []Page `json:"pages"`
}

// ValidatePages checks that page numbers are strictly increasing and
// contiguous starting at 1.
func (d *SourceDocument) ValidatePages() error {
	for i, p := range d.Pages {
		if p.Number != i+1 {
			return fmt.Errorf("document %s: page %d has number %d, want %d", d.ID, i, p.Number, i+1)
		}
	}
	return nil
}
