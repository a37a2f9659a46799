// Package watcher reports changes to a single source file.
//
// The watcher observes the file's directory rather than the file itself so
// that editors which save by writing a temporary file and renaming it over
// the original keep being noticed. Bursts of events are coalesced into one
// Change after a quiet period.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// DefaultDebounce is the quiet period before a burst is reported.
const DefaultDebounce = 100 * time.Millisecond

// Errors returned by the watcher.
var (
	ErrClosed   = errors.New("watcher is closed")
	ErrNotExist = errors.New("watched file does not exist")
)

// Op is a set of file system operations.
type Op uint32

const (
	// OpCreate indicates the file was created or renamed into place.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed away.
	OpRename
	// OpChmod indicates the file's attributes changed.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String joins the names of the operations in op with "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has reports whether op includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Change is one coalesced burst of operations on the watched file.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDebounce sets the quiet period. Non-positive values select
// DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *FileWatcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(w *FileWatcher) {
		w.log = log
	}
}

// WithBufferSize sets the capacity of the Changes and Errors channels.
func WithBufferSize(n int) Option {
	return func(w *FileWatcher) {
		if n > 0 {
			w.buffer = n
		}
	}
}

// FileWatcher watches one file through fsnotify.
type FileWatcher struct {
	path   string
	fsw    *fsnotify.Watcher
	delay  time.Duration
	buffer int
	log    logr.Logger

	changes chan Change
	errors  chan error
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending *Change
	timer   *time.Timer
	closed  bool
}

// New starts watching path, which must exist.
func New(path string, opts ...Option) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", abs, ErrNotExist)
		}
		return nil, err
	}

	w := &FileWatcher{
		path:    abs,
		delay:   DefaultDebounce,
		buffer:  16,
		log:     logr.Discard(),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithName("watcher").WithValues("path", abs)
	w.changes = make(chan Change, w.buffer)
	w.errors = make(chan error, w.buffer)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Changes delivers coalesced changes. It is closed by Close.
func (w *FileWatcher) Changes() <-chan Change {
	return w.changes
}

// Errors delivers fsnotify errors. It is closed by Close.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Close stops watching. Pending changes are discarded.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	err := w.fsw.Close()

	w.mu.Lock()
	close(w.changes)
	close(w.errors)
	w.mu.Unlock()
	return err
}

// Flush delivers a pending change immediately.
func (w *FileWatcher) Flush() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.fire()
}

func (w *FileWatcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error(err, "file watch error")
			w.mu.Lock()
			if !w.closed {
				select {
				case w.errors <- err:
				default:
				}
			}
			w.mu.Unlock()
		}
	}
}

func (w *FileWatcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	op := convertOp(ev.Op)
	if op == 0 || op == OpChmod {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if w.pending != nil {
		w.pending.Op |= op
		w.pending.Time = time.Now()
		w.timer.Reset(w.delay)
		return
	}
	w.pending = &Change{Path: w.path, Op: op, Time: time.Now()}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.delay, w.fire)
	} else {
		w.timer.Reset(w.delay)
	}
}

func (w *FileWatcher) fire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.pending == nil {
		return
	}
	change := *w.pending
	w.pending = nil

	select {
	case w.changes <- change:
		w.log.V(1).Info("file changed", "op", change.Op.String())
	default:
		w.log.V(1).Info("change dropped, consumer is behind")
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}
