package position

import "github.com/dshills/lockstep/internal/anchor"

// Geometric spreads anchors evenly over the scroll space in document order.
// The first anchor is clamped to minOffset. totalHeight is the full content
// height including page gaps, not content minus viewport: the table stays
// independent of the preview size and the actuator clamps anchors near the
// end.
func Geometric(totalHeight float64, anchors []anchor.Anchor, minOffset float64) []Entry {
	if totalHeight <= 0 || len(anchors) == 0 {
		return nil
	}

	sorted := anchor.SortByLine(anchors)
	n := float64(len(sorted))
	entries := make([]Entry, 0, len(sorted))
	for i, a := range sorted {
		if a.ID == "" {
			continue
		}
		off := totalHeight * float64(i) / n
		if off < minOffset {
			off = minOffset
		}
		entries = append(entries, Entry{ID: a.ID, Line: a.SourceLine, Offset: off, Rung: RungGeometric})
	}
	return entries
}
