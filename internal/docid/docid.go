// Package docid derives stable, filesystem-safe document IDs from PDF paths.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// DocID returns a stable document ID for the given absolute path: the
// sanitized filename stem plus a short digest of the cleaned path. The same
// path always yields the same ID, and the result is safe to use as a
// directory name under the figures tree.
func DocID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	stem := strings.TrimSuffix(filepath.Base(normalized), filepath.Ext(normalized))
	return sanitize(stem) + "-" + hex.EncodeToString(hash[:])[:8]
}

// sanitize keeps letters, digits, dash, and underscore; everything else
// becomes a dash. Empty stems become "doc".
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "doc"
	}
	return out
}
