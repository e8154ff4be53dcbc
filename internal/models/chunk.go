package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a bounded unit of text indexed for retrieval, tagged with the
// source pages its text came from. A chunk may span a page boundary but never
// splits an atomic table or equation block.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Pages      []int     `json:"pages"`
	Type       BlockType `json:"type"`
}

// ChunkID returns the stable chunk ID for the given document, chunk index, and
// text. The same inputs always yield the same ID, so a full re-ingestion of an
// unchanged corpus regenerates identical IDs.
func ChunkID(documentID string, index int, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s", documentID, index, text)
	return "chunk:" + hex.EncodeToString(h.Sum(nil))[:24]
}

// FirstPage returns the lowest source page of the chunk, or 0 when untagged.
func (c *Chunk) FirstPage() int {
	if len(c.Pages) == 0 {
		return 0
	}
	return c.Pages[0]
}
