package position

import (
	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/anchor"
)

// Default layout constants.
const (
	// DefaultPageGap is the vertical gap rendered after every page, in pixels.
	DefaultPageGap = 16.0

	// DefaultGeometricMinOffset keeps the first geometric anchor clear of
	// offset 0 and of the actuator tolerance.
	DefaultGeometricMinOffset = 8.0
)

// Layout describes how pages are stacked in the preview.
type Layout struct {
	// PageGap is added after every page.
	PageGap float64

	// GeometricMinOffset clamps the first anchor of the geometric rung.
	GeometricMinOffset float64
}

// DefaultLayout returns the default layout.
func DefaultLayout() Layout {
	return Layout{
		PageGap:            DefaultPageGap,
		GeometricMinOffset: DefaultGeometricMinOffset,
	}
}

// Pages is a prepared view of page metrics: validated, sorted and with
// cumulative tops precomputed.
type Pages struct {
	metrics []anchor.PageMetric
	tops    map[int]float64
	byIndex map[int]anchor.PageMetric
	total   float64
}

// NewPages prepares metrics for offset computation. Invalid metrics are
// logged and skipped.
func NewPages(metrics []anchor.PageMetric, layout Layout, log logr.Logger) *Pages {
	p := &Pages{
		tops:    make(map[int]float64, len(metrics)),
		byIndex: make(map[int]anchor.PageMetric, len(metrics)),
	}
	var top float64
	for _, m := range anchor.SortMetrics(metrics) {
		if err := m.Validate(); err != nil {
			log.V(1).Info("skipping page metric", "page", m.Index, "error", err.Error())
			continue
		}
		if _, dup := p.byIndex[m.Index]; dup {
			log.V(1).Info("skipping duplicate page metric", "page", m.Index)
			continue
		}
		p.metrics = append(p.metrics, m)
		p.byIndex[m.Index] = m
		p.tops[m.Index] = top
		top += m.PixelHeight + layout.PageGap
	}
	p.total = top
	return p
}

// Len returns the number of usable pages.
func (p *Pages) Len() int {
	return len(p.metrics)
}

// TotalHeight is the height of the concatenated scroll space.
func (p *Pages) TotalHeight() float64 {
	return p.total
}

// Top returns the cumulative height before a page.
func (p *Pages) Top(index int) (float64, bool) {
	top, ok := p.tops[index]
	return top, ok
}

// Metric returns the metric for a page.
func (p *Pages) Metric(index int) (anchor.PageMetric, bool) {
	m, ok := p.byIndex[index]
	return m, ok
}

// Recompute maps every anchor with precise page data to its absolute pixel
// offset: the cumulative height before its page plus Y scaled to pixels.
//
// Anchors without page data get no entry. Malformed anchors are logged and
// skipped. Empty inputs yield an empty table.
func Recompute(generation uint64, metrics []anchor.PageMetric, anchors []anchor.Anchor, layout Layout, log logr.Logger) *OffsetTable {
	pages := NewPages(metrics, layout, log)
	return recompute(generation, pages, anchors, log)
}

func recompute(generation uint64, pages *Pages, anchors []anchor.Anchor, log logr.Logger) *OffsetTable {
	if pages.Len() == 0 || len(anchors) == 0 {
		return NewOffsetTable(generation, pages.TotalHeight(), nil)
	}

	entries := make([]Entry, 0, len(anchors))
	for _, a := range anchors {
		if !a.HasPosition() {
			continue
		}
		if err := a.Validate(); err != nil {
			log.V(1).Info("skipping malformed anchor", "error", err.Error())
			continue
		}
		top, ok := pages.Top(a.Position.PageIndex)
		if !ok {
			log.V(1).Info("skipping anchor on unknown page", "anchor", a.ID, "page", a.Position.PageIndex)
			continue
		}
		m, _ := pages.Metric(a.Position.PageIndex)
		entries = append(entries, Entry{
			ID:     a.ID,
			Line:   a.SourceLine,
			Offset: top + a.Position.Y*m.Scale,
			Rung:   RungPrecise,
		})
	}
	return NewOffsetTable(generation, pages.TotalHeight(), entries)
}
