package figures

import "strings"

// IntentDetector decides whether a query is asking for visual material.
type IntentDetector func(query string) bool

// figureKeywords are the cue words that signal a request for figures.
var figureKeywords = []string{
	"figure",
	"image",
	"diagram",
	"plot",
	"chart",
	"graph",
	"visual",
	"show me",
	"picture",
}

// KeywordIntent reports whether the query contains any figure cue word. The
// match is case-insensitive substring containment, so "figures" and
// "Diagrams" both trigger it.
func KeywordIntent(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range figureKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
