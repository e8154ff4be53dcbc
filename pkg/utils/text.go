// Package utils holds small helpers shared across the pipeline: logger
// construction, vector math, and text formatting.
package utils

// Truncate shortens a chunk's text to at most maxLen bytes for display as a
// result snippet, appending "..." when anything was cut. Non-positive maxLen
// returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
