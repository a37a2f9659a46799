package app

import (
	"context"

	"github.com/dshills/lockstep/internal/position"
	"github.com/dshills/lockstep/internal/scrollsync"
	"github.com/dshills/lockstep/internal/syncmode"
)

// ScrollEditor is a user scroll of the editor to top.
func (a *App) ScrollEditor(ctx context.Context, top int) error {
	return a.do(ctx, func() {
		a.editor.ScrollTo(top)
		a.engine.EditorScrolled(a.editor.VisibleRange())
	})
}

// RevealLine moves the editor so line is visible, as cursor motion would.
// It is not a user scroll and keeps the manual-position lock.
func (a *App) RevealLine(ctx context.Context, line int) error {
	return a.do(ctx, func() {
		if !a.editor.IsLineVisible(line) {
			a.editor.CenterOn(line)
		}
		a.engine.EditorViewportChanged(a.editor.VisibleRange())
	})
}

// ResizeEditor changes the editor height to lines, as a window resize
// would. It is not a user scroll.
func (a *App) ResizeEditor(ctx context.Context, lines int) error {
	return a.do(ctx, func() {
		a.editor.Resize(lines)
		a.engine.EditorViewportChanged(a.editor.VisibleRange())
	})
}

// ResizePreview changes the preview client height in pixels.
func (a *App) ResizePreview(ctx context.Context, height float64) error {
	return a.do(ctx, func() { a.preview.Resize(height) })
}

// Keystroke reports typing in the editor.
func (a *App) Keystroke(ctx context.Context) error {
	return a.do(ctx, a.engine.Keystroke)
}

// ScrollPreview is a user scroll of the preview to top pixels.
func (a *App) ScrollPreview(ctx context.Context, top float64) error {
	return a.do(ctx, func() { a.preview.SetScrollTop(top) })
}

// ClickPreview is a click at content offset y in the preview.
func (a *App) ClickPreview(ctx context.Context, y float64) error {
	return a.do(ctx, func() { a.engine.PreviewClicked(y) })
}

// SetMode switches the sync mode.
func (a *App) SetMode(ctx context.Context, m syncmode.Mode) error {
	return a.do(ctx, func() { a.engine.SetMode(m) })
}

// ReleaseLock clears the manual-position lock.
func (a *App) ReleaseLock(ctx context.Context) error {
	return a.do(ctx, a.engine.ReleaseLock)
}

// Status is a point-in-time view of the session.
type Status struct {
	Path          string
	Generation    uint64
	Mode          syncmode.Mode
	Locked        bool
	Active        scrollsync.ActiveAnchor
	EditorTop     int
	PreviewTop    float64
	ContentHeight float64
	Anchors       int
	Placed        int
	Rung          position.Rung
}

// Status reports the current state.
func (a *App) Status(ctx context.Context) (Status, error) {
	var st Status
	err := a.do(ctx, func() {
		table := a.engine.Table()
		st = Status{
			Path:          a.path,
			Generation:    a.engine.Generation(),
			Mode:          a.engine.Mode(),
			Locked:        a.engine.Locked(),
			Active:        a.engine.Active(),
			EditorTop:     a.editor.TopLine(),
			PreviewTop:    a.preview.ScrollTop(),
			ContentHeight: a.preview.ScrollHeight(),
			Placed:        table.Len(),
			Rung:          table.Rung(),
		}
		if a.installed != nil {
			st.Anchors = len(a.installed.Anchors)
		}
	})
	return st, err
}
