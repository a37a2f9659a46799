// Package viewport provides the editor and preview scroll models driven by
// the sync engine.
package viewport

import (
	"math"
	"sync"
)

// LineRange is an inclusive range of 0-based source lines.
type LineRange struct {
	First int
	Last  int
}

// Mid returns the midpoint of the range.
func (r LineRange) Mid() float64 {
	return float64(r.First+r.Last) / 2
}

// Contains reports whether line is inside the range.
func (r LineRange) Contains(line int) bool {
	return line >= r.First && line <= r.Last
}

// Normalize swaps reversed bounds and clamps negatives.
func (r LineRange) Normalize() LineRange {
	if r.First > r.Last {
		r.First, r.Last = r.Last, r.First
	}
	if r.First < 0 {
		r.First = 0
	}
	if r.Last < 0 {
		r.Last = 0
	}
	return r
}

// Lines is the editor viewport measured in lines.
type Lines struct {
	mu sync.RWMutex

	// First visible line
	topLine int

	// Size in lines
	height    int
	lineCount int

	mutations int
}

// NewLines creates an editor viewport. Height is clamped to a minimum of 1.
func NewLines(height, lineCount int) *Lines {
	if height < 1 {
		height = 1
	}
	if lineCount < 0 {
		lineCount = 0
	}
	return &Lines{height: height, lineCount: lineCount}
}

// Attached always reports true; the editor surface outlives the preview.
func (v *Lines) Attached() bool {
	return true
}

// TopLine returns the first visible line.
func (v *Lines) TopLine() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.topLine
}

// VisibleRange returns the visible lines.
func (v *Lines) VisibleRange() LineRange {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.visibleRange()
}

func (v *Lines) visibleRange() LineRange {
	last := v.topLine + v.height - 1
	if v.lineCount > 0 && last > v.lineCount-1 {
		last = v.lineCount - 1
	}
	if last < v.topLine {
		last = v.topLine
	}
	return LineRange{First: v.topLine, Last: last}
}

// IsLineVisible returns true if the line is within the viewport.
func (v *Lines) IsLineVisible(line int) bool {
	return v.VisibleRange().Contains(line)
}

// Resize updates the height in lines.
func (v *Lines) Resize(height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if height < 1 {
		height = 1
	}
	v.height = height
	v.topLine = v.clamp(v.topLine)
}

// SetLineCount updates the document length and clamps the top line.
func (v *Lines) SetLineCount(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 0 {
		n = 0
	}
	v.lineCount = n
	v.topLine = v.clamp(v.topLine)
}

// ScrollTop returns the top line as a float offset.
func (v *Lines) ScrollTop() float64 {
	return float64(v.TopLine())
}

// Height returns the number of visible lines.
func (v *Lines) Height() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return float64(v.height)
}

// ScrollHeight returns the document length in lines.
func (v *Lines) ScrollHeight() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return float64(v.lineCount)
}

// SetScrollTop scrolls to the nearest whole line.
func (v *Lines) SetScrollTop(top float64) {
	v.ScrollTo(int(math.Round(top)))
}

// ScrollTo makes line the first visible line.
func (v *Lines) ScrollTo(line int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	line = v.clamp(line)
	if line == v.topLine {
		return
	}
	v.topLine = line
	v.mutations++
}

// CenterOn centers the viewport on the given line.
func (v *Lines) CenterOn(line int) {
	v.mu.RLock()
	half := v.height / 2
	v.mu.RUnlock()
	v.ScrollTo(line - half)
}

// Mutations returns how many times the top line changed.
func (v *Lines) Mutations() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mutations
}

// clamp keeps top within [0, lineCount-height] (no lock).
func (v *Lines) clamp(top int) int {
	maxTop := v.lineCount - v.height
	if maxTop < 0 {
		maxTop = 0
	}
	if top > maxTop {
		top = maxTop
	}
	if top < 0 {
		top = 0
	}
	return top
}
