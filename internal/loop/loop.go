// Package loop provides the single event loop that owns all scroll
// synchronization state.
//
// Handlers and timer callbacks never run concurrently: everything executes
// on the goroutine running Loop.Run. Code that must hand work to the loop
// from another goroutine (compile results, watcher events) uses Post.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when posting to a loop that is no longer running.
var ErrStopped = errors.New("event loop stopped")

// Timer is a pending scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was stopped.
	Stop() bool
}

// Scheduler is the time source used by all synchronization components.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop runs posted functions sequentially on one goroutine.
type Loop struct {
	queue chan func()

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// New creates a loop with the given queue capacity.
func New(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 256
	}
	return &Loop{
		queue: make(chan func(), capacity),
		done:  make(chan struct{}),
	}
}

// Run executes posted functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn for execution on the loop goroutine. Post blocks while the
// queue is full.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Do posts fn and waits until it ran.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if err := l.Post(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn to run on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		_ = l.Post(func() {
			// Stop may have raced with the time.Timer firing; the flag is read
			// on the loop so the callback observes the final decision.
			if lt.cancelled() {
				return
			}
			fn()
		})
	})
	return lt
}

type loopTimer struct {
	mu      sync.Mutex
	t       *time.Timer
	stopped bool
}

func (lt *loopTimer) Stop() bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.stopped {
		return false
	}
	lt.stopped = true
	return lt.t.Stop()
}

func (lt *loopTimer) cancelled() bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.stopped
}

var _ Scheduler = (*Loop)(nil)
