package models

// RetrievalResult is a single ranked retrieval hit. It exists only for the
// duration of one query.
type RetrievalResult struct {
	Chunk      *Chunk  `json:"chunk"`
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
}

// QueryRequest is the retrieval request consumed by the HTTP API and CLI.
type QueryRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
	MaxFigures int    `json:"max_figures,omitempty"`
}

// QueryResponse is the answer_query payload for the external chat layer:
// ranked chunks as prompt context, figure matches as UI attachments.
type QueryResponse struct {
	Query     string             `json:"query"`
	Results   []*RetrievalResult `json:"results"`
	Figures   []*FigureMatch     `json:"figures"`
	QueryTime int64              `json:"query_time_ms"`
}
