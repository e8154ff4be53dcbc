package figures

import (
	"testing"

	"github.com/hyperjump/ronbun/internal/config"
)

func TestFilter_Keep(t *testing.T) {
	f := NewFilter(config.FiguresConfig{MinDimension: 50, MaxAspectSkew: 10.0})

	tests := []struct {
		name          string
		width, height int
		want          bool
	}{
		{"typical figure", 640, 480, true},
		{"square minimum", 50, 50, true},
		{"icon too small", 16, 16, false},
		{"thin in one dimension", 800, 12, false},
		{"banner strip", 2000, 60, false},
		{"tall strip", 60, 2000, false},
		{"at skew limit", 500, 50, true},
		{"zero width", 0, 100, false},
		{"negative", -1, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Keep(tt.width, tt.height); got != tt.want {
				t.Errorf("Keep(%d, %d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestFilter_ZeroSkewDisablesAspectCheck(t *testing.T) {
	f := NewFilter(config.FiguresConfig{MinDimension: 50})
	if !f.Keep(5000, 50) {
		t.Error("aspect check should be disabled when skew limit is zero")
	}
}
