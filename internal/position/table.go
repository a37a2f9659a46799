// Package position computes where anchors land in the concatenated,
// multi-page preview scroll space.
//
// The precise computation (Recompute) is pure. The fallback ladder that
// fills in anchors without page data lives in Ladder and is owned by the
// caller.
package position

import (
	"math"
	"sort"
)

// Rung identifies which fallback rung produced an offset table.
type Rung uint8

const (
	// RungNone marks an empty table.
	RungNone Rung = iota
	// RungPrecise is engine-reported page coordinates.
	RungPrecise
	// RungExtraction is anchor tokens located in rendered page text.
	RungExtraction
	// RungGeometric is an even distribution in document order.
	RungGeometric
)

// String returns the rung name.
func (r Rung) String() string {
	switch r {
	case RungNone:
		return "none"
	case RungPrecise:
		return "precise"
	case RungExtraction:
		return "extraction"
	case RungGeometric:
		return "geometric"
	default:
		return "unknown"
	}
}

// Entry is one placed anchor.
type Entry struct {
	ID     string
	Line   int
	Offset float64
	Rung   Rung
}

// OffsetTable maps anchor IDs to absolute pixel offsets.
// A table is immutable once built.
type OffsetTable struct {
	generation  uint64
	rung        Rung
	totalHeight float64
	offsets     map[string]float64
	entries     []Entry // sorted by offset, then line
}

// NewOffsetTable builds a table from entries. The highest rung present
// (precise < extraction < geometric) is recorded as the table's rung.
func NewOffsetTable(generation uint64, totalHeight float64, entries []Entry) *OffsetTable {
	t := &OffsetTable{
		generation:  generation,
		totalHeight: totalHeight,
		offsets:     make(map[string]float64, len(entries)),
		entries:     make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.offsets[e.ID]; dup {
			continue
		}
		t.offsets[e.ID] = e.Offset
		t.entries = append(t.entries, e)
		if e.Rung > t.rung {
			t.rung = e.Rung
		}
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		if t.entries[i].Offset != t.entries[j].Offset {
			return t.entries[i].Offset < t.entries[j].Offset
		}
		return t.entries[i].Line < t.entries[j].Line
	})
	return t
}

// Generation returns the compile generation the table belongs to.
func (t *OffsetTable) Generation() uint64 {
	if t == nil {
		return 0
	}
	return t.generation
}

// Rung returns the lowest-priority rung that contributed entries.
func (t *OffsetTable) Rung() Rung {
	if t == nil {
		return RungNone
	}
	return t.rung
}

// TotalHeight returns the height of the whole scroll space in pixels.
func (t *OffsetTable) TotalHeight() float64 {
	if t == nil {
		return 0
	}
	return t.totalHeight
}

// Len returns the number of placed anchors.
func (t *OffsetTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Empty reports whether no anchor is placed.
func (t *OffsetTable) Empty() bool {
	return t.Len() == 0
}

// Offset returns the offset of an anchor.
func (t *OffsetTable) Offset(id string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	off, ok := t.offsets[id]
	return off, ok
}

// Has reports whether the anchor is placed.
func (t *OffsetTable) Has(id string) bool {
	_, ok := t.Offset(id)
	return ok
}

// Entries returns a copy of the entries sorted by offset.
func (t *OffsetTable) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Nearest returns the entry closest to y by pixel distance.
// Ties prefer the earlier entry.
func (t *OffsetTable) Nearest(y float64) (Entry, bool) {
	if t.Empty() {
		return Entry{}, false
	}
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Offset >= y })
	switch {
	case i == 0:
		return t.entries[0], true
	case i == len(t.entries):
		return t.entries[len(t.entries)-1], true
	}
	before, after := t.entries[i-1], t.entries[i]
	if math.Abs(after.Offset-y) < math.Abs(y-before.Offset) {
		return after, true
	}
	return before, true
}
