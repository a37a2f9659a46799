// Package anchor defines the data shared between the typesetting engine,
// the page rasterizer and the scroll synchronizer.
//
// An anchor correlates one point in the source document with one point in
// the rendered, paginated output. Anchor sets are produced wholesale by each
// compile and are never merged across compiles.
package anchor

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Validation errors.
var (
	// ErrEmptyID indicates an anchor without an identifier.
	ErrEmptyID = errors.New("anchor has empty id")

	// ErrNegativeSource indicates a negative source line or offset.
	ErrNegativeSource = errors.New("anchor has negative source position")

	// ErrBadPage indicates a page index outside of the rendered pages.
	ErrBadPage = errors.New("anchor page index out of range")

	// ErrBadY indicates a page-relative coordinate that is not a finite, non-negative number.
	ErrBadY = errors.New("anchor page y is not a finite non-negative number")
)

// PagePosition locates an anchor on a rendered page.
type PagePosition struct {
	// PageIndex is the 0-based page index.
	PageIndex int

	// Y is the distance from the top of the page in page units (points).
	Y float64
}

// Anchor is one source/render correlation point.
type Anchor struct {
	// ID is an opaque identifier, stable within one compile generation.
	ID string

	// SourceLine is the 0-based line in the source document.
	SourceLine int

	// SourceOffset is the byte offset in the source document.
	SourceOffset int

	// Position is nil when the engine could not report page coordinates.
	Position *PagePosition
}

// HasPosition reports whether the engine supplied page coordinates.
func (a Anchor) HasPosition() bool {
	return a.Position != nil
}

// String returns a compact debug representation.
func (a Anchor) String() string {
	if a.Position == nil {
		return fmt.Sprintf("%s@L%d", a.ID, a.SourceLine)
	}
	return fmt.Sprintf("%s@L%d(p%d,%.1f)", a.ID, a.SourceLine, a.Position.PageIndex, a.Position.Y)
}

// Validate checks the source-side fields of an anchor.
func (a Anchor) Validate() error {
	if a.ID == "" {
		return ErrEmptyID
	}
	if a.SourceLine < 0 || a.SourceOffset < 0 {
		return fmt.Errorf("%s: %w", a.ID, ErrNegativeSource)
	}
	if a.Position != nil {
		if a.Position.PageIndex < 0 {
			return fmt.Errorf("%s: %w", a.ID, ErrBadPage)
		}
		y := a.Position.Y
		if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 {
			return fmt.Errorf("%s: %w", a.ID, ErrBadY)
		}
	}
	return nil
}

// SortByLine returns a copy of anchors ordered by source line, then offset.
// Input order breaks remaining ties.
func SortByLine(anchors []Anchor) []Anchor {
	out := make([]Anchor, len(anchors))
	copy(out, anchors)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SourceLine != out[j].SourceLine {
			return out[i].SourceLine < out[j].SourceLine
		}
		return out[i].SourceOffset < out[j].SourceOffset
	})
	return out
}

// Index maps anchor IDs to anchors. Later duplicates are ignored.
func Index(anchors []Anchor) map[string]Anchor {
	idx := make(map[string]Anchor, len(anchors))
	for _, a := range anchors {
		if _, dup := idx[a.ID]; dup {
			continue
		}
		idx[a.ID] = a
	}
	return idx
}

// NearestByLine returns the anchor whose source line is closest to line.
// Ties prefer the earlier anchor. ok is false for an empty slice.
func NearestByLine(anchors []Anchor, line int) (best Anchor, ok bool) {
	bestDist := math.MaxInt
	for _, a := range anchors {
		d := a.SourceLine - line
		if d < 0 {
			d = -d
		}
		if d < bestDist || (d == bestDist && a.SourceLine < best.SourceLine) {
			best, bestDist, ok = a, d, true
		}
	}
	return best, ok
}
