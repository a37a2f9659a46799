package scrollsync

import (
	"github.com/dshills/lockstep/internal/scroll"
)

// AttachPreview mounts the preview container.
func (e *Engine) AttachPreview(v PreviewView) {
	if e.closed {
		return
	}
	e.previewView = v
	e.preview.SetViewport(v)
	e.seq.Offer(e.state.Generation, startupContainer)
}

// DetachPreview unmounts the preview container. Later scrolls are no-ops.
func (e *Engine) DetachPreview() {
	e.previewView = nil
	e.preview.SetViewport(nil)
	e.previewDebounce.Cancel()
	e.seq.Withdraw(startupContainer)
}

// PreviewScrolled reports a scroll event from the preview container.
// Events raised by the engine's own moves are ignored.
func (e *Engine) PreviewScrolled() {
	if e.closed || e.previewView == nil || !e.previewView.Attached() {
		return
	}
	if e.preview.Programmatic() {
		e.log.V(2).Info("ignoring programmatic preview scroll")
		return
	}

	if e.state.CompileInFlight {
		// Pixel positions are about to be replaced.
		e.log.V(2).Info("ignoring preview scroll during compile")
		return
	}

	gen := e.state.Generation
	e.seq.Interrupt(gen)
	if !e.mode.PreviewTracked() {
		return
	}
	if e.mode.UserScrolledPreview() {
		e.log.V(1).Info("manual lock engaged by preview scroll")
		e.editorDebounce.Cancel()
		e.state.SyncDeferred = false
	}

	e.previewDebounce.Trigger(func() {
		e.syncPreviewToEditor(gen, e.previewCenter(), false)
	})
}

// PreviewClicked jumps the editor to the anchor nearest the content offset
// y. It bypasses debounce and clears the manual-position lock.
func (e *Engine) PreviewClicked(y float64) {
	if e.closed {
		return
	}
	e.seq.Interrupt(e.state.Generation)
	e.previewDebounce.Cancel()
	if e.mode.Release() {
		e.log.V(1).Info("manual lock released by click")
	}
	e.syncPreviewToEditor(e.state.Generation, y, true)
}

func (e *Engine) previewCenter() float64 {
	if e.previewView == nil {
		return 0
	}
	return e.previewView.Center()
}

// syncPreviewToEditor selects the anchor nearest y by pixel distance and,
// when the mode allows it (always for clicks), moves the editor.
func (e *Engine) syncPreviewToEditor(gen uint64, y float64, click bool) {
	if e.closed {
		return
	}
	if gen != e.state.Generation {
		e.log.V(2).Info("dropping stale preview sync", "generation", gen, "current", e.state.Generation)
		return
	}

	entry, ok := e.table().Nearest(y)
	if !ok {
		return
	}
	if !click && entry.ID == e.state.LastPreviewSynced {
		return
	}

	e.state.LastPreviewSynced = entry.ID
	// The editor now shows this anchor; its viewport event must not bounce
	// the preview.
	e.state.LastEditorSynced = entry.ID
	e.setActive(ActiveAnchor{ID: entry.ID, SourceLine: entry.Line, Origin: OriginPreview})

	if !click && !e.mode.PreviewDrivesEditor() {
		return
	}
	e.editor.ScrollTo(float64(entry.Line), scroll.Options{Center: click, Force: true})
	if e.editorView != nil {
		e.state.EditorRange = e.editorView.VisibleRange().Normalize()
	}
}
