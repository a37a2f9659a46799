package scrollsync

import (
	"math"

	"github.com/dshills/lockstep/internal/anchor"
	"github.com/dshills/lockstep/internal/position"
	"github.com/dshills/lockstep/internal/scroll"
	"github.com/dshills/lockstep/internal/viewport"
)

// EditorViewportChanged reports an editor viewport move that was not a
// user scroll (cursor motion, resize, edits). It does not clear the lock.
func (e *Engine) EditorViewportChanged(r viewport.LineRange) {
	if e.closed {
		return
	}
	if e.editor.Programmatic() {
		// Our own Preview→Editor move.
		return
	}
	e.state.EditorRange = r.Normalize()
	e.scheduleEditorSync()
}

// SetEditorRange records the editor viewport after a move the engine was
// not told about as an event, such as restoring a saved top line. It does
// not schedule a sync.
func (e *Engine) SetEditorRange(r viewport.LineRange) {
	if e.closed {
		return
	}
	e.state.EditorRange = r.Normalize()
}

// EditorScrolled reports a user-initiated editor scroll. In auto mode it
// clears the manual-position lock.
func (e *Engine) EditorScrolled(r viewport.LineRange) {
	if e.closed || e.editor.Programmatic() {
		return
	}
	e.seq.Interrupt(e.state.Generation)
	if e.mode.UserScrolledEditor() {
		e.log.V(1).Info("manual lock released by editor scroll")
		e.state.LastEditorSynced = ""
	}
	e.state.EditorRange = r.Normalize()
	e.scheduleEditorSync()
}

// Keystroke marks the user as typing. Preview motion is suppressed and any
// Editor→Preview sync is deferred until typing stops.
func (e *Engine) Keystroke() {
	if e.closed {
		return
	}
	e.state.Typing = true
	e.seq.Interrupt(e.state.Generation)
	if e.editorDebounce.Pending() {
		e.editorDebounce.Cancel()
		e.state.SyncDeferred = true
	}
	e.typingIdle.Trigger(e.typingStopped)
}

// Typing reports whether the user is currently typing.
func (e *Engine) Typing() bool {
	return e.state.Typing
}

func (e *Engine) typingStopped() {
	e.state.Typing = false
	if e.state.SyncDeferred {
		e.state.SyncDeferred = false
		e.editorDebounce.Trigger(e.syncEditorToPreview)
	}
}

func (e *Engine) scheduleEditorSync() {
	if e.state.Typing {
		e.state.SyncDeferred = true
		return
	}
	e.editorDebounce.Trigger(e.syncEditorToPreview)
}

// syncEditorToPreview moves the preview to the anchor nearest the editor's
// visible range.
func (e *Engine) syncEditorToPreview() {
	if e.closed || !e.mode.EditorDrivesPreview() || e.editor.Programmatic() {
		return
	}
	if e.state.Typing {
		e.state.SyncDeferred = true
		return
	}

	table := e.table()
	a, ok := resolveEditorAnchor(e.state.Anchors, table, e.state.EditorRange, e.cfg.AnchorWindow)
	if !ok || a.ID == e.state.LastEditorSynced {
		return
	}
	offset, _ := table.Offset(a.ID)

	switch res := e.preview.ScrollTo(offset, scroll.Options{}); res {
	case scroll.Suppressed:
		e.state.SyncDeferred = true
		return
	case scroll.Detached:
		return
	}

	e.state.LastEditorSynced = a.ID
	e.state.LastPreviewSynced = a.ID
	e.setActive(ActiveAnchor{ID: a.ID, SourceLine: a.SourceLine, Origin: OriginEditor})
}

// resolveEditorAnchor picks the placed anchor whose line is closest to the
// midpoint of r among those within window lines of r. When none is that
// close, the section containing r is kept: the last anchor above r wins,
// or the nearest one when r precedes every anchor. Ties prefer the earlier
// line.
func resolveEditorAnchor(anchors []anchor.Anchor, table *position.OffsetTable, r viewport.LineRange, window int) (anchor.Anchor, bool) {
	if table.Empty() {
		return anchor.Anchor{}, false
	}
	lo, hi := r.First-window, r.Last+window
	mid := r.Mid()

	var near, above, closest anchor.Anchor
	var haveNear, haveAbove, haveClosest bool
	nearDist, closestDist := math.Inf(1), math.Inf(1)
	for _, a := range anchors {
		if !table.Has(a.ID) {
			continue
		}
		d := math.Abs(float64(a.SourceLine) - mid)
		if a.SourceLine >= lo && a.SourceLine <= hi && d < nearDist {
			near, nearDist, haveNear = a, d, true
		}
		if a.SourceLine < r.First {
			// Anchors are sorted by line; the last one seen wins.
			above, haveAbove = a, true
		}
		if d < closestDist {
			closest, closestDist, haveClosest = a, d, true
		}
	}
	switch {
	case haveNear:
		return near, true
	case haveAbove:
		return above, true
	default:
		return closest, haveClosest
	}
}
