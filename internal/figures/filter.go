package figures

import "github.com/hyperjump/ronbun/internal/config"

// Filter rejects decorative images that are not worth surfacing as figures:
// icons, bullets, rules and banner strips.
type Filter struct {
	minDimension  int
	maxAspectSkew float64
}

// NewFilter builds a filter from the figure extraction settings.
func NewFilter(cfg config.FiguresConfig) *Filter {
	return &Filter{
		minDimension:  cfg.MinDimension,
		maxAspectSkew: cfg.MaxAspectSkew,
	}
}

// Keep reports whether an image of the given pixel dimensions should be kept.
func (f *Filter) Keep(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if width < f.minDimension || height < f.minDimension {
		return false
	}
	if f.maxAspectSkew > 0 {
		long, short := float64(width), float64(height)
		if short > long {
			long, short = short, long
		}
		if long/short > f.maxAspectSkew {
			return false
		}
	}
	return true
}
