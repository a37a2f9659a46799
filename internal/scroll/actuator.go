// Package scroll moves a viewport to a target offset.
//
// An Actuator is idempotent: a target within tolerance of the current
// position is a no-op. Every real move marks the viewport programmatic for
// a guard window so the opposite sync direction can ignore the resulting
// scroll event.
package scroll

import (
	"context"
	"math"
	"time"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/loop"
	"github.com/dshills/lockstep/internal/telemetry"
)

// Default tuning values.
const (
	DefaultGuard      = 200 * time.Millisecond
	DefaultSettle     = 100 * time.Millisecond
	DefaultCenterBias = 0.5
	DefaultTopBias    = 0.3

	// PreviewTolerance is the preview tolerance in pixels.
	PreviewTolerance = 3.0

	// EditorTolerance is the editor tolerance in lines.
	EditorTolerance = 0.5
)

// Viewport is a scrollable container in some unit (pixels or lines).
type Viewport interface {
	// Attached reports whether the container is still mounted.
	Attached() bool
	ScrollTop() float64
	// Height is the visible extent.
	Height() float64
	// ScrollHeight is the full content extent.
	ScrollHeight() float64
	SetScrollTop(v float64)
}

// Options modify a single ScrollTo call.
type Options struct {
	// Center places the target in the middle of the viewport instead of
	// slightly below the top.
	Center bool

	// Force bypasses typing suppression.
	Force bool
}

// Result describes what ScrollTo did.
type Result uint8

const (
	Moved Result = iota
	WithinTolerance
	Suppressed
	Detached
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case Moved:
		return "moved"
	case WithinTolerance:
		return "within_tolerance"
	case Suppressed:
		return "suppressed"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Config tunes an Actuator.
type Config struct {
	// Side names the viewport in logs and metrics ("preview" or "editor").
	Side string

	Tolerance  float64
	Guard      time.Duration
	Settle     time.Duration
	CenterBias float64
	TopBias    float64
}

// PreviewConfig returns the defaults for the pixel-based preview.
func PreviewConfig() Config {
	return Config{
		Side:       "preview",
		Tolerance:  PreviewTolerance,
		Guard:      DefaultGuard,
		Settle:     DefaultSettle,
		CenterBias: DefaultCenterBias,
		TopBias:    DefaultTopBias,
	}
}

// EditorConfig returns the defaults for the line-based editor.
func EditorConfig() Config {
	cfg := PreviewConfig()
	cfg.Side = "editor"
	cfg.Tolerance = EditorTolerance
	return cfg
}

// Actuator drives one viewport. It must only be used on the loop goroutine.
type Actuator struct {
	cfg      Config
	viewport Viewport
	sched    loop.Scheduler
	log      logr.Logger
	metrics  *telemetry.Metrics

	suppress func() bool

	programmatic bool
	guard        loop.Timer
	mutations    int
}

// NewActuator creates an actuator for viewport.
func NewActuator(viewport Viewport, sched loop.Scheduler, cfg Config, log logr.Logger, metrics *telemetry.Metrics) *Actuator {
	return &Actuator{
		cfg:      cfg,
		viewport: viewport,
		sched:    sched,
		log:      log.WithName("scroll").WithValues("side", cfg.Side),
		metrics:  metrics,
	}
}

// SetViewport replaces the driven viewport. A nil viewport detaches.
func (a *Actuator) SetViewport(v Viewport) {
	a.viewport = v
}

// SetSuppressor installs the typing-suppression predicate. While it returns
// true, only forced scrolls move the viewport.
func (a *Actuator) SetSuppressor(fn func() bool) {
	a.suppress = fn
}

// Programmatic reports whether a move made by this actuator is still inside
// its guard window.
func (a *Actuator) Programmatic() bool {
	return a.programmatic
}

// Mutations returns how many times the actuator changed the scroll position.
func (a *Actuator) Mutations() int {
	return a.mutations
}

// Target returns the clamped scroll position for offset.
func (a *Actuator) Target(offset float64, center bool) float64 {
	if a.viewport == nil {
		return 0
	}
	return target(a.viewport, offset, a.bias(center))
}

// ScrollTo moves the viewport so that offset lands at the biased position.
func (a *Actuator) ScrollTo(offset float64, opts Options) Result {
	res := a.scrollTo(offset, opts)
	a.metrics.RecordScroll(context.Background(), a.cfg.Side, res.String())
	return res
}

func (a *Actuator) scrollTo(offset float64, opts Options) Result {
	if a.viewport == nil || !a.viewport.Attached() {
		return Detached
	}
	if !opts.Force && a.suppress != nil && a.suppress() {
		return Suppressed
	}

	want := target(a.viewport, offset, a.bias(opts.Center))
	current := a.viewport.ScrollTop()
	if math.Abs(current-want) <= a.cfg.Tolerance {
		return WithinTolerance
	}

	// The guard flag is set before the scroll so a synchronous scroll event
	// raised by SetScrollTop already observes it.
	a.arm()
	a.viewport.SetScrollTop(want)
	a.mutations++
	a.log.V(2).Info("scrolled", "from", current, "to", want, "force", opts.Force)
	return Moved
}

func (a *Actuator) arm() {
	if a.guard != nil {
		a.guard.Stop()
	}
	a.programmatic = true
	a.guard = a.sched.AfterFunc(a.cfg.Guard+a.cfg.Settle, func() {
		a.programmatic = false
		a.guard = nil
	})
}

// Close clears the guard timer.
func (a *Actuator) Close() {
	if a.guard != nil {
		a.guard.Stop()
		a.guard = nil
	}
	a.programmatic = false
}

func (a *Actuator) bias(center bool) float64 {
	if center {
		return a.cfg.CenterBias
	}
	return a.cfg.TopBias
}

func target(v Viewport, offset, bias float64) float64 {
	t := offset - v.Height()*bias
	maxTop := v.ScrollHeight() - v.Height()
	if maxTop < 0 {
		maxTop = 0
	}
	switch {
	case math.IsNaN(t), t < 0:
		return 0
	case t > maxTop:
		return maxTop
	default:
		return t
	}
}
