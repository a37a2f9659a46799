package position

import (
	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/anchor"
)

// Inputs is everything one generation has delivered so far.
type Inputs struct {
	Generation uint64
	Metrics    []anchor.PageMetric
	Anchors    []anchor.Anchor
	TextItems  []TextItem
}

// Ladder applies the fallback rungs in strict priority and caches the
// result for one generation.
//
// Rung 1 places anchors with precise page data. Rung 2 places the anchors
// rung 1 could not, using extracted page text. Rung 3 fires only when
// neither placed anything.
type Ladder struct {
	layout Layout
	log    logr.Logger

	cached   *OffsetTable
	revision uint64
	cachedAt uint64
}

// NewLadder creates a ladder with the given layout.
func NewLadder(layout Layout, log logr.Logger) *Ladder {
	return &Ladder{layout: layout, log: log.WithName("position")}
}

// Invalidate marks the cached table stale. Callers invoke it whenever the
// inputs of the current generation change.
func (l *Ladder) Invalidate() {
	l.revision++
}

// Table returns the offset table for in, rebuilding only when the
// generation changed or Invalidate was called since the last build.
func (l *Ladder) Table(in Inputs) *OffsetTable {
	if l.cached != nil && l.cached.Generation() == in.Generation && l.cachedAt == l.revision {
		return l.cached
	}
	l.cached = l.build(in)
	l.cachedAt = l.revision
	return l.cached
}

func (l *Ladder) build(in Inputs) *OffsetTable {
	pages := NewPages(in.Metrics, l.layout, l.log)
	if pages.Len() == 0 || len(in.Anchors) == 0 {
		return NewOffsetTable(in.Generation, pages.TotalHeight(), nil)
	}

	precise := recompute(in.Generation, pages, in.Anchors, l.log)
	entries := precise.Entries()
	if len(entries) == len(in.Anchors) {
		return precise
	}

	placed := make(map[string]bool, len(entries))
	for _, e := range entries {
		placed[e.ID] = true
	}
	entries = append(entries, Extract(in.Generation, pages, in.Anchors, in.TextItems, placed, l.log)...)

	if len(entries) == 0 {
		entries = Geometric(pages.TotalHeight(), in.Anchors, l.layout.GeometricMinOffset)
	}

	t := NewOffsetTable(in.Generation, pages.TotalHeight(), entries)
	l.log.V(1).Info("offset table built",
		"generation", in.Generation,
		"rung", t.Rung().String(),
		"placed", t.Len(),
		"anchors", len(in.Anchors),
	)
	return t
}
