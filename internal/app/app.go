// Package app runs lockstep for one open document.
//
// An App owns the event loop and everything that lives on it: the scroll
// engine, the editor and preview viewports, and the installed compile. Work
// arriving from other goroutines (compile results, rasterized pages, file
// changes, user interaction) is posted to the loop, so the engine itself is
// never locked.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/anchor"
	"github.com/dshills/lockstep/internal/loop"
	"github.com/dshills/lockstep/internal/position"
	"github.com/dshills/lockstep/internal/render"
	"github.com/dshills/lockstep/internal/scrollsync"
	"github.com/dshills/lockstep/internal/session"
	"github.com/dshills/lockstep/internal/telemetry"
	"github.com/dshills/lockstep/internal/viewport"
	"github.com/dshills/lockstep/internal/watcher"
)

// Viewport defaults.
const (
	DefaultEditorHeight  = 40
	DefaultPreviewHeight = 900.0
)

// shutdownTimeout bounds the final session save.
const shutdownTimeout = 2 * time.Second

// PageSource rasterizes a compiled artifact.
type PageSource interface {
	PageMetrics(ctx context.Context, artifact string) ([]anchor.PageMetric, error)
}

// TextSource extracts positioned page text from a compiled artifact.
type TextSource interface {
	TextItems(ctx context.Context, artifact string) ([]position.TextItem, error)
}

// ChangeSource reports changes to the document file.
type ChangeSource interface {
	Changes() <-chan watcher.Change
}

// Options configures an App.
type Options struct {
	// Path is the markdown document.
	Path string

	Compiler render.Compiler
	Pages    PageSource

	// Text is optional. Without it the extraction rung has nothing to read.
	Text TextSource

	// Store is optional. Without it positions are not remembered.
	Store session.Store

	// Watcher is optional. Without it the document renders once.
	Watcher ChangeSource

	Engine        scrollsync.Config
	EditorHeight  int
	PreviewHeight float64

	Logger  logr.Logger
	Metrics *telemetry.Metrics

	// OnActive runs on the loop goroutine whenever the active anchor changes.
	OnActive func(scrollsync.ActiveAnchor)
}

// App is one open document.
type App struct {
	opts  Options
	path  string
	docID string
	log   logr.Logger

	loop      *loop.Loop
	coalescer *render.Coalescer
	engine    *scrollsync.Engine
	editor    *viewport.Lines
	preview   *viewport.Pixels

	bg     context.Context
	stopBg context.CancelFunc
	wg     sync.WaitGroup

	running atomic.Bool
	done    atomic.Bool

	// Owned by the loop goroutine.
	installed  *render.Document
	restoreTop int
}

// New creates an App. Nothing runs until Run.
func New(opts Options) (*App, error) {
	if opts.Path == "" || opts.Compiler == nil || opts.Pages == nil {
		return nil, fmt.Errorf("%w: path, compiler and page source are required", ErrInvalidOptions)
	}
	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, NewOperationError("open", opts.Path, err)
	}
	docID, err := session.DocumentID(abs)
	if err != nil {
		return nil, NewOperationError("open", abs, err)
	}
	if opts.EditorHeight <= 0 {
		opts.EditorHeight = DefaultEditorHeight
	}
	if opts.PreviewHeight <= 0 {
		opts.PreviewHeight = DefaultPreviewHeight
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}

	a := &App{
		opts:  opts,
		path:  abs,
		docID: docID,
		log:   opts.Logger.WithName("app").WithValues("document", abs),
		loop:  loop.New(0),

		restoreTop: -1,
	}
	a.bg, a.stopBg = context.WithCancel(context.Background())

	a.editor = viewport.NewLines(opts.EditorHeight, 1)
	a.preview = viewport.NewPixels(opts.PreviewHeight)

	engineOpts := []scrollsync.Option{
		scrollsync.WithLogger(opts.Logger),
		scrollsync.WithMetrics(opts.Metrics),
	}
	if opts.OnActive != nil {
		engineOpts = append(engineOpts, scrollsync.WithActiveListener(opts.OnActive))
	}
	a.engine = scrollsync.New(a.editor, a.loop, opts.Engine, engineOpts...)
	a.preview.OnScroll(func(float64) { a.engine.PreviewScrolled() })

	a.coalescer = render.NewCoalescer(opts.Compiler,
		render.WithObserver(compileObserver{a}),
		render.WithLogger(opts.Logger),
		render.WithMetrics(opts.Metrics),
	)
	return a, nil
}

// Path returns the absolute document path.
func (a *App) Path() string {
	return a.path
}

// DocumentID returns the session key of the document.
func (a *App) DocumentID() string {
	return a.docID
}

// Run starts the loop, restores the remembered position, renders the
// document and re-renders on every file change until ctx is cancelled.
// Compile failures are logged, not returned. On return the position has
// been saved and every goroutine has stopped.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- a.loop.Run(loopCtx) }()
	defer func() {
		a.shutdown()
		stopLoop()
		<-loopDone
	}()

	a.restore(ctx)
	if err := a.loop.Do(ctx, func() { a.engine.AttachPreview(a.preview) }); err != nil {
		return ignoreCancel(err)
	}
	a.log.Info("document opened", "id", a.docID)

	a.reloadAsync(ctx)

	var changes <-chan watcher.Change
	if a.opts.Watcher != nil {
		changes = a.opts.Watcher.Changes()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			a.log.V(1).Info("document changed", "op", c.Op.String())
			a.reloadAsync(ctx)
		}
	}
}

// Reload reads the document from disk and renders it.
func (a *App) Reload(ctx context.Context) error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return NewOperationError("read", a.path, err)
	}
	return a.Render(ctx, string(data))
}

// Render compiles content, which may differ from the file on disk (an
// unsaved buffer), and installs the result. Concurrent calls share
// compiles as the coalescer allows.
func (a *App) Render(ctx context.Context, content string) error {
	doc, err := a.coalescer.Render(ctx, content)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, render.ErrClosed) {
			_ = a.loop.Post(func() { a.engine.CompileFailed(err) })
		}
		return NewOperationError("render", a.path, err)
	}
	return a.loop.Do(ctx, func() { a.install(doc) })
}

// reloadAsync renders in the background so that bursts of changes queue
// in the coalescer instead of behind each other.
func (a *App) reloadAsync(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Reload(ctx); err != nil && ctx.Err() == nil {
			a.log.Error(err, "render failed")
		}
	}()
}

// install runs on the loop. Callers that shared one compile all arrive
// here with the same document; only the first installs it.
func (a *App) install(doc *render.Document) {
	if doc == a.installed {
		return
	}
	a.installed = doc
	a.editor.SetLineCount(countLines(doc.Source))
	if a.restoreTop >= 0 {
		a.editor.ScrollTo(a.restoreTop)
		a.engine.SetEditorRange(a.editor.VisibleRange())
		a.restoreTop = -1
	}
	gen := a.engine.InstallCompile(doc)

	a.wg.Add(1)
	go a.fetchInputs(gen, doc.Artifact)
}

// fetchInputs extracts text and rasterizes pages for gen. Text is posted
// first so the extraction rung is available by the time page metrics
// complete the startup inputs.
func (a *App) fetchInputs(gen uint64, artifact string) {
	defer a.wg.Done()
	log := a.log.WithValues("generation", gen)

	if a.opts.Text != nil {
		items, err := a.opts.Text.TextItems(a.bg, artifact)
		switch {
		case err != nil:
			log.Info("text extraction failed", "error", err.Error())
		default:
			_ = a.loop.Post(func() { a.engine.SetTextItems(gen, items) })
		}
	}

	metrics, err := a.opts.Pages.PageMetrics(a.bg, artifact)
	if err != nil {
		if a.bg.Err() == nil {
			log.Error(err, "page rasterization failed")
		}
		return
	}
	_ = a.loop.Post(func() {
		if gen != a.engine.Generation() {
			return
		}
		pages := position.NewPages(metrics, a.opts.Engine.Layout, log)
		a.preview.SetContentHeight(pages.TotalHeight())
		a.engine.SetPageMetrics(gen, metrics)
	})
}

func (a *App) shutdown() {
	a.done.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.save(ctx); err != nil {
		a.log.Error(err, "could not save position")
	}

	a.stopBg()
	a.coalescer.Close()
	_ = a.loop.Do(ctx, a.engine.Close)
	a.wg.Wait()
	a.log.Info("document closed")
}

// do runs fn on the loop while the App is running.
func (a *App) do(ctx context.Context, fn func()) error {
	if !a.running.Load() || a.done.Load() {
		return ErrNotRunning
	}
	if err := a.loop.Do(ctx, fn); err != nil {
		if errors.Is(err, loop.ErrStopped) {
			return ErrNotRunning
		}
		return err
	}
	return nil
}

type compileObserver struct {
	a *App
}

func (o compileObserver) CompileStarted(string) {
	_ = o.a.loop.Post(o.a.engine.CompileStarted)
}

func (o compileObserver) CompileFinished(*render.Document, error) {}

func countLines(s string) int {
	n := 1
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && i+1 < len(s) {
			n++
		}
	}
	return n
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
