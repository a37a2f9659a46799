package render

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/telemetry"
)

// Coalescer is a single-flight, latest-wins compile queue.
// It is safe for concurrent use.
type Coalescer struct {
	compiler Compiler
	observer Observer
	log      logr.Logger
	metrics  *telemetry.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inFlight bool
	pending  *string
	batch    *batch
	closed   bool
}

// batch is the shared result of one busy period.
type batch struct {
	done chan struct{}
	doc  *Document
	err  error
}

// Option configures a Coalescer.
type Option func(*Coalescer)

// WithObserver registers lifecycle callbacks.
func WithObserver(o Observer) Option {
	return func(c *Coalescer) {
		c.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Coalescer) {
		c.log = log
	}
}

// WithMetrics records compile outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Coalescer) {
		c.metrics = m
	}
}

// NewCoalescer creates a coalescer around compiler.
func NewCoalescer(compiler Compiler, opts ...Option) *Coalescer {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coalescer{
		compiler: compiler,
		log:      logr.Discard(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithName("render")
	return c
}

// Render requests a compile of content and waits for the result of the
// busy period it joined. Cancelling ctx stops the wait only; the compile
// continues and other callers still receive its result.
func (c *Coalescer) Render(ctx context.Context, content string) (*Document, error) {
	b, err := c.enqueue(content)
	if err != nil {
		return nil, err
	}

	select {
	case <-b.done:
		return b.doc, b.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports whether a compile is running.
func (c *Coalescer) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Close rejects new requests, cancels the context passed to the compiler
// and waits for the worker to exit. Waiting callers receive the error the
// compiler returns for the cancelled context.
func (c *Coalescer) Close() {
	c.mu.Lock()
	c.closed = true
	c.pending = nil
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Coalescer) enqueue(content string) (*batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if c.inFlight {
		if c.pending != nil {
			c.metrics.RecordSuperseded(c.ctx)
			c.log.V(1).Info("superseding queued render")
		}
		c.pending = &content
		return c.batch, nil
	}

	c.inFlight = true
	c.batch = &batch{done: make(chan struct{})}
	c.wg.Add(1)
	go c.drain(content, c.batch)
	return c.batch, nil
}

// drain compiles content, then any content queued meanwhile, until the
// pending slot is empty. Only then is the batch resolved.
func (c *Coalescer) drain(content string, b *batch) {
	defer c.wg.Done()

	for {
		doc, err := c.compile(content)

		c.mu.Lock()
		if c.pending != nil {
			content = *c.pending
			c.pending = nil
			c.mu.Unlock()
			if err != nil {
				c.log.V(1).Info("render failed, newer request queued", "error", err.Error())
			}
			continue
		}
		c.inFlight = false
		c.batch = nil
		c.mu.Unlock()

		b.doc, b.err = doc, err
		close(b.done)
		return
	}
}

func (c *Coalescer) compile(content string) (*Document, error) {
	if c.observer != nil {
		c.observer.CompileStarted(content)
	}

	start := time.Now()
	doc, err := c.compiler.Compile(c.ctx, content)
	if err == nil && doc == nil {
		err = ErrNoDocument
	}
	elapsed := time.Since(start)
	c.metrics.RecordCompile(c.ctx, elapsed, err == nil)

	if err != nil {
		c.log.Info("render failed", "error", err.Error(), "elapsed", elapsed)
	} else {
		c.log.V(1).Info("render finished", "anchors", len(doc.Anchors), "elapsed", elapsed)
	}

	if c.observer != nil {
		c.observer.CompileFinished(doc, err)
	}
	return doc, err
}
