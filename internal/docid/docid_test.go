package docid

import (
	"strings"
	"testing"
)

func TestDocID_Stable(t *testing.T) {
	a := DocID("/data/papers/attention.pdf")
	b := DocID("/data/papers/attention.pdf")
	if a != b {
		t.Errorf("same path should yield same ID: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "attention-") {
		t.Errorf("ID should carry the filename stem: %s", a)
	}
}

func TestDocID_DistinctPathsDistinctIDs(t *testing.T) {
	a := DocID("/data/a/paper.pdf")
	b := DocID("/data/b/paper.pdf")
	if a == b {
		t.Error("different paths should yield different IDs")
	}
}

func TestDocID_SanitizesStem(t *testing.T) {
	id := DocID("/data/Großberg et al. (2019).pdf")
	for _, r := range id {
		ok := r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			t.Errorf("ID contains unsafe rune %q: %s", r, id)
		}
	}
}

func TestDocID_EmptyStem(t *testing.T) {
	id := DocID("/data/папка/***.pdf")
	if !strings.Contains(id, "-") {
		t.Errorf("ID should still carry digest suffix: %s", id)
	}
}
