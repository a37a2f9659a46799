package app

import (
	"context"
	"errors"

	"github.com/dshills/lockstep/internal/session"
)

// restore loads the remembered position and hands it to the engine as the
// first generation's startup target. Store failures are logged; the
// document opens at the top instead.
func (a *App) restore(ctx context.Context) {
	if a.opts.Store == nil {
		return
	}
	pos, err := a.opts.Store.Load(ctx, a.docID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		a.log.V(1).Info("no remembered position")
		return
	case err != nil:
		a.log.Error(err, "could not load position")
		return
	}

	a.log.V(1).Info("restoring position", "anchor", pos.AnchorID, "line", pos.SourceLine, "mode", pos.Mode.String())
	_ = a.loop.Do(ctx, func() {
		a.engine.SetRestoreTarget(pos)
		a.restoreTop = pos.EditorTopLine
	})
}

// Save persists the current position.
func (a *App) Save(ctx context.Context) error {
	if !a.running.Load() || a.done.Load() {
		return ErrNotRunning
	}
	return a.save(ctx)
}

func (a *App) save(ctx context.Context) error {
	if a.opts.Store == nil {
		return nil
	}
	var pos session.Position
	if err := a.loop.Do(ctx, func() { pos = a.engine.Snapshot() }); err != nil {
		return NewOperationError("save", a.path, err)
	}
	if err := a.opts.Store.Save(ctx, a.docID, pos); err != nil {
		return NewOperationError("save", a.path, err)
	}
	a.log.V(1).Info("position saved", "anchor", pos.AnchorID, "line", pos.SourceLine)
	return nil
}
