package scrollsync

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/anchor"
	"github.com/dshills/lockstep/internal/loop"
	"github.com/dshills/lockstep/internal/position"
	"github.com/dshills/lockstep/internal/render"
	"github.com/dshills/lockstep/internal/scroll"
	"github.com/dshills/lockstep/internal/session"
	"github.com/dshills/lockstep/internal/startup"
	"github.com/dshills/lockstep/internal/syncmode"
	"github.com/dshills/lockstep/internal/telemetry"
	"github.com/dshills/lockstep/internal/viewport"
)

const startupContainer = startup.Container

// Default timing values.
const (
	DefaultEditorDebounce  = 120 * time.Millisecond
	DefaultPreviewDebounce = 80 * time.Millisecond
	DefaultTypingIdle      = 400 * time.Millisecond
	DefaultAnchorWindow    = 30
)

// Config tunes an Engine.
type Config struct {
	Mode            syncmode.Mode
	EditorDebounce  time.Duration
	PreviewDebounce time.Duration
	TypingIdle      time.Duration
	StartupTimeout  time.Duration

	// AnchorWindow is how many lines outside the visible range an anchor may
	// be and still be preferred over farther ones.
	AnchorWindow int

	Layout  position.Layout
	Preview scroll.Config
	Editor  scroll.Config
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		Mode:            syncmode.Auto,
		EditorDebounce:  DefaultEditorDebounce,
		PreviewDebounce: DefaultPreviewDebounce,
		TypingIdle:      DefaultTypingIdle,
		StartupTimeout:  startup.DefaultTimeout,
		AnchorWindow:    DefaultAnchorWindow,
		Layout:          position.DefaultLayout(),
		Preview:         scroll.PreviewConfig(),
		Editor:          scroll.EditorConfig(),
	}
}

// EditorView is the editor surface as seen by the engine.
type EditorView interface {
	scroll.Viewport
	VisibleRange() viewport.LineRange
}

// PreviewView is the preview container as seen by the engine.
type PreviewView interface {
	scroll.Viewport
	// Center returns the content offset at the vertical middle.
	Center() float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithMetrics records scroll and table metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithActiveListener registers fn to be called whenever the active anchor
// changes.
func WithActiveListener(fn func(ActiveAnchor)) Option {
	return func(e *Engine) {
		e.onActive = fn
	}
}

// Engine is the scroll synchronization engine for one document.
type Engine struct {
	cfg     Config
	sched   loop.Scheduler
	log     logr.Logger
	metrics *telemetry.Metrics

	state  *State
	mode   *syncmode.Machine
	ladder *position.Ladder
	seq    *startup.Sequencer

	editorView  EditorView
	previewView PreviewView
	editor      *scroll.Actuator
	preview     *scroll.Actuator

	editorDebounce  *loop.Debouncer
	previewDebounce *loop.Debouncer
	typingIdle      *loop.Debouncer

	onActive func(ActiveAnchor)
	closed   bool
}

// New creates an engine for the given editor surface. The preview is
// attached separately.
func New(editor EditorView, sched loop.Scheduler, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		sched:      sched,
		log:        logr.Discard(),
		state:      NewState(),
		mode:       syncmode.NewMachine(cfg.Mode),
		editorView: editor,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithName("scrollsync")

	e.ladder = position.NewLadder(cfg.Layout, e.log)
	e.editor = scroll.NewActuator(editor, sched, cfg.Editor, e.log, e.metrics)
	e.preview = scroll.NewActuator(nil, sched, cfg.Preview, e.log, e.metrics)
	e.preview.SetSuppressor(func() bool { return e.state.Typing })

	e.editorDebounce = loop.NewDebouncer(sched, cfg.EditorDebounce)
	e.previewDebounce = loop.NewDebouncer(sched, cfg.PreviewDebounce)
	e.typingIdle = loop.NewDebouncer(sched, cfg.TypingIdle)

	e.seq = startup.New(sched, e.initialSync,
		startup.WithTimeout(cfg.StartupTimeout),
		startup.WithLogger(e.log),
		startup.WithMetrics(e.metrics),
	)
	return e
}

// Generation returns the installed compile generation.
func (e *Engine) Generation() uint64 {
	return e.state.Generation
}

// Active returns the active anchor.
func (e *Engine) Active() ActiveAnchor {
	return e.state.Active
}

// Mode returns the sync mode.
func (e *Engine) Mode() syncmode.Mode {
	return e.mode.Mode()
}

// Locked reports whether the manual-position lock is engaged.
func (e *Engine) Locked() bool {
	return e.mode.Locked()
}

// Table returns the current offset table, building it if needed.
func (e *Engine) Table() *position.OffsetTable {
	return e.table()
}

// CompileStarted marks a compile as in flight. Preview scroll events are
// not resolved until it finishes.
func (e *Engine) CompileStarted() {
	e.state.CompileInFlight = true
}

// CompileFailed clears the in-flight flag. The previous generation stays
// installed.
func (e *Engine) CompileFailed(err error) {
	e.state.CompileInFlight = false
	e.log.V(1).Info("compile failed, keeping previous generation", "error", err.Error(), "generation", e.state.Generation)
}

// InstallCompile installs the anchors of a successful compile as a new
// generation and returns it. Page metrics and text items must be supplied
// for the returned generation.
func (e *Engine) InstallCompile(doc *render.Document) uint64 {
	if e.closed {
		return e.state.Generation
	}

	anchors := make([]anchor.Anchor, 0, len(doc.Anchors))
	for _, a := range doc.Anchors {
		if err := a.Validate(); err != nil {
			e.log.Info("skipping malformed anchor", "anchor", a.String(), "error", err.Error())
			continue
		}
		anchors = append(anchors, a)
	}

	e.previewDebounce.Cancel()
	e.state.resetGeneration(anchor.SortByLine(anchors))
	e.mode.CompileSucceeded()
	e.ladder.Invalidate()

	gen := e.state.Generation
	e.seq.Arm(gen)
	e.seq.Offer(gen, startup.Compile)
	if len(anchors) > 0 {
		e.seq.Offer(gen, startup.Anchors)
	}
	e.log.V(1).Info("compile installed", "generation", gen, "anchors", len(anchors))
	return gen
}

// SetPageMetrics supplies the rasterized page heights for gen.
func (e *Engine) SetPageMetrics(gen uint64, metrics []anchor.PageMetric) {
	if e.closed || !e.current(gen, "metrics") {
		return
	}
	e.state.Metrics = anchor.SortMetrics(metrics)
	e.ladder.Invalidate()
	if len(e.state.Metrics) > 0 {
		e.seq.Offer(gen, startup.Metrics)
	}
}

// SetTextItems supplies the extracted page text for gen.
func (e *Engine) SetTextItems(gen uint64, items []position.TextItem) {
	if e.closed || !e.current(gen, "text") {
		return
	}
	e.state.TextItems = items
	e.ladder.Invalidate()
}

// SetMode is an explicit user toggle. It clears the manual-position lock
// and resynchronizes the preview if the new mode lets the editor drive it.
func (e *Engine) SetMode(m syncmode.Mode) {
	if e.closed {
		return
	}
	if e.mode.Set(m) {
		e.log.V(1).Info("sync mode changed", "mode", m.String())
	}
	e.state.LastEditorSynced = ""
	if e.mode.EditorDrivesPreview() {
		e.scheduleEditorSync()
	}
}

// ReleaseLock clears the manual-position lock and lets the editor drive
// the preview again.
func (e *Engine) ReleaseLock() {
	if e.closed || !e.mode.Release() {
		return
	}
	e.state.LastEditorSynced = ""
	e.scheduleEditorSync()
}

// SetRestoreTarget sets the persisted position used by the first initial
// scroll and restores its mode.
func (e *Engine) SetRestoreTarget(pos session.Position) {
	e.state.Restore = &pos
	if pos.Mode.Valid() {
		e.mode.Set(pos.Mode)
	}
}

// Snapshot returns the position to persist for this document.
func (e *Engine) Snapshot() session.Position {
	pos := session.Position{
		AnchorID:   e.state.Active.ID,
		SourceLine: e.state.Active.SourceLine,
		Mode:       e.mode.Mode(),
		SavedAt:    e.sched.Now(),
	}
	if e.editorView != nil {
		pos.EditorTopLine = int(e.editorView.ScrollTop())
		if !e.state.Active.Valid() {
			pos.SourceLine = e.editorView.VisibleRange().First
		}
	}
	if e.previewView != nil && e.previewView.Attached() {
		pos.PreviewOffset = e.previewView.ScrollTop()
	}
	return pos
}

// Close clears every timer. Later calls are no-ops.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.editorDebounce.Cancel()
	e.previewDebounce.Cancel()
	e.typingIdle.Cancel()
	e.seq.Close()
	e.editor.Close()
	e.preview.Close()
}

func (e *Engine) current(gen uint64, what string) bool {
	if gen == e.state.Generation {
		return true
	}
	e.log.V(2).Info("dropping stale input", "input", what, "generation", gen, "current", e.state.Generation)
	return false
}

// table returns the ladder's table for the current inputs and records a
// metric whenever a new one is installed.
func (e *Engine) table() *position.OffsetTable {
	t := e.ladder.Table(e.state.inputs())
	if t != e.state.Table {
		e.state.Table = t
		if !t.Empty() {
			e.metrics.RecordTable(context.Background(), t.Rung().String())
		}
	}
	return t
}

func (e *Engine) setActive(a ActiveAnchor) {
	if a == e.state.Active {
		return
	}
	e.state.Active = a
	e.log.V(2).Info("active anchor", "id", a.ID, "line", a.SourceLine, "origin", a.Origin.String())
	if e.onActive != nil {
		e.onActive(a)
	}
}
