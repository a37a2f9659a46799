package scrollsync

import (
	"github.com/dshills/lockstep/internal/anchor"
	"github.com/dshills/lockstep/internal/scroll"
)

// initialSync is the one-shot scroll of a generation. It runs when the
// startup sequencer has seen every input and uses whichever fallback rung
// the ladder produces at that moment.
func (e *Engine) initialSync(gen uint64) {
	if e.closed || gen != e.state.Generation {
		return
	}
	table := e.table()
	if table.Empty() {
		e.log.V(1).Info("initial sync skipped, nothing placed", "generation", gen)
		return
	}

	placed := make([]anchor.Anchor, 0, table.Len())
	for _, a := range e.state.Anchors {
		if table.Has(a.ID) {
			placed = append(placed, a)
		}
	}
	if len(placed) == 0 {
		return
	}

	target, source := placed[0], "first"
	switch {
	case e.state.Previous.Valid():
		if a, ok := anchor.NearestByLine(placed, e.state.Previous.SourceLine); ok {
			target, source = a, "previous"
		}
	case e.state.Restore != nil:
		if a, ok := anchor.NearestByLine(placed, e.state.Restore.SourceLine); ok {
			target, source = a, "session"
		}
	}

	offset, _ := table.Offset(target.ID)
	res := e.preview.ScrollTo(offset, scroll.Options{Force: true})
	e.log.V(1).Info("initial sync",
		"generation", gen,
		"anchor", target.ID,
		"source", source,
		"rung", table.Rung().String(),
		"result", res.String(),
	)
	if res == scroll.Detached {
		return
	}

	e.state.Restore = nil
	e.state.LastEditorSynced = target.ID
	e.state.LastPreviewSynced = target.ID
	e.setActive(ActiveAnchor{ID: target.ID, SourceLine: target.SourceLine, Origin: OriginStartup})
}
