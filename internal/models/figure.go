package models

// ExtractedImage is a raster image pulled out of a PDF page, written under the
// figures directory at {document_id}/{page}/{index}.{ext}. Only images that
// passed the junk filter are ever materialized.
type ExtractedImage struct {
	DocumentID string `json:"document_id"`
	Page       int    `json:"page"`
	Index      int    `json:"index"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Path       string `json:"path"`
}

// FigureMatch links a retrieved chunk to a nearby extracted image.
// Distance is the page distance between the chunk's matched page and the
// image's page; ChunkRank is the rank of the chunk that produced the match.
type FigureMatch struct {
	Image     *ExtractedImage `json:"image"`
	Page      int             `json:"page"`
	Distance  int             `json:"distance"`
	ChunkRank int             `json:"chunk_rank"`
}
