package parse

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse_NotAPDFIsParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0600); err != nil {
		t.Fatal(err)
	}
	p := NewParser()
	_, err := p.Parse(path)
	if err == nil {
		t.Fatal("expected error for corrupt input")
	}
	if !IsParseFailure(err) {
		t.Errorf("error should classify as parse failure: %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Path == "" {
		t.Error("ParseError should carry the document path")
	}
}

func TestParse_MissingFileIsParseFailure(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(filepath.Join(t.TempDir(), "nope.pdf"))
	if err == nil || !IsParseFailure(err) {
		t.Errorf("missing file should be a parse failure, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	got := normalize("a  \r\nb\t\n  c")
	if got != "a\nb\n  c" {
		t.Errorf("normalize = %q", got)
	}
}
