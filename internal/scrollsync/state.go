// Package scrollsync keeps the editor and the paginated preview in visual
// lockstep.
//
// An Engine owns one State and must only be driven from the loop
// goroutine. Both sync directions read and write the same State; the
// feedback guards (last-synced ids and the actuators' programmatic windows)
// ensure only one direction writes per causal instant.
package scrollsync

import (
	"github.com/dshills/lockstep/internal/anchor"
	"github.com/dshills/lockstep/internal/position"
	"github.com/dshills/lockstep/internal/session"
	"github.com/dshills/lockstep/internal/viewport"
)

// Origin records which side selected the active anchor.
type Origin uint8

const (
	OriginNone Origin = iota
	OriginEditor
	OriginPreview
	OriginStartup
)

// String returns the origin name.
func (o Origin) String() string {
	switch o {
	case OriginEditor:
		return "editor"
	case OriginPreview:
		return "preview"
	case OriginStartup:
		return "startup"
	default:
		return "none"
	}
}

// ActiveAnchor is the anchor currently in focus.
type ActiveAnchor struct {
	ID         string
	SourceLine int
	Origin     Origin
}

// Valid reports whether an anchor is selected.
func (a ActiveAnchor) Valid() bool {
	return a.ID != ""
}

// State is the per-document synchronization state.
type State struct {
	// Generation is bumped by every installed compile.
	Generation uint64

	// Anchors is the current generation's anchor set, sorted by line.
	Anchors   []anchor.Anchor
	Metrics   []anchor.PageMetric
	TextItems []position.TextItem

	// Table is the last offset table built for Generation.
	Table *position.OffsetTable

	Active ActiveAnchor

	// Previous is the active anchor of the last generation that had one.
	// Anchor ids do not survive a compile; only SourceLine is meaningful.
	Previous ActiveAnchor

	// Last anchor each direction moved the other side to.
	LastEditorSynced  string
	LastPreviewSynced string

	EditorRange viewport.LineRange

	Typing          bool
	SyncDeferred    bool
	CompileInFlight bool

	// Restore is the persisted position used by the first initial scroll.
	Restore *session.Position
}

// NewState returns the state of a document with no compile installed.
func NewState() *State {
	return &State{}
}

// resetGeneration discards everything scoped to the previous compile.
func (s *State) resetGeneration(anchors []anchor.Anchor) {
	if s.Active.Valid() {
		s.Previous = s.Active
	}
	s.Generation++
	s.Anchors = anchors
	s.Metrics = nil
	s.TextItems = nil
	s.Table = nil
	s.Active = ActiveAnchor{}
	s.LastEditorSynced = ""
	s.LastPreviewSynced = ""
	s.CompileInFlight = false
}

func (s *State) inputs() position.Inputs {
	return position.Inputs{
		Generation: s.Generation,
		Metrics:    s.Metrics,
		Anchors:    s.Anchors,
		TextItems:  s.TextItems,
	}
}
