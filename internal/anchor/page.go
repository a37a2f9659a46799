package anchor

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrBadMetric indicates a page metric with a non-positive height or scale.
var ErrBadMetric = errors.New("page metric has non-positive height or scale")

// PageMetric describes one rendered page.
type PageMetric struct {
	// Index is the 0-based page index.
	Index int

	// PixelHeight is the rendered page height in pixels at Scale.
	PixelHeight float64

	// Scale converts page units to pixels.
	Scale float64
}

// Validate checks that the metric can be used for offset computation.
func (m PageMetric) Validate() error {
	if m.Index < 0 {
		return fmt.Errorf("page %d: %w", m.Index, ErrBadPage)
	}
	if !(m.PixelHeight > 0) || !(m.Scale > 0) || math.IsInf(m.PixelHeight, 0) || math.IsInf(m.Scale, 0) {
		return fmt.Errorf("page %d: %w", m.Index, ErrBadMetric)
	}
	return nil
}

// UnitHeight returns the page height in page units.
func (m PageMetric) UnitHeight() float64 {
	return m.PixelHeight / m.Scale
}

// SortMetrics returns a copy of metrics ordered by page index.
func SortMetrics(metrics []PageMetric) []PageMetric {
	out := make([]PageMetric, len(metrics))
	copy(out, metrics)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
