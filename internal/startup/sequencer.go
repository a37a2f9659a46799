// Package startup performs the one-shot initial scroll of a compiled
// document once all of its inputs have arrived, in any order.
package startup

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/dshills/lockstep/internal/loop"
	"github.com/dshills/lockstep/internal/telemetry"
)

// DefaultTimeout bounds how long a generation waits for its inputs.
const DefaultTimeout = 5 * time.Second

// Input names one prerequisite of the initial scroll.
type Input uint8

const (
	// Container is the mounted preview. It survives generations.
	Container Input = 1 << iota
	// Compile means the generation compiled successfully.
	Compile
	// Metrics means at least one page metric is known.
	Metrics
	// Anchors means at least one anchor is known.
	Anchors

	all = Container | Compile | Metrics | Anchors
)

// String returns the input name.
func (i Input) String() string {
	switch i {
	case Container:
		return "container"
	case Compile:
		return "compile"
	case Metrics:
		return "metrics"
	case Anchors:
		return "anchors"
	default:
		return "inputs"
	}
}

// Outcomes recorded in metrics.
const (
	OutcomeFired       = "fired"
	OutcomeAbandoned   = "abandoned"
	OutcomeInterrupted = "interrupted"
)

// Sequencer joins the inputs of one generation and fires once when they are
// all present. It must only be used on the loop goroutine.
type Sequencer struct {
	sched   loop.Scheduler
	timeout time.Duration
	fire    func(gen uint64)
	log     logr.Logger
	metrics *telemetry.Metrics

	gen        uint64
	have       Input
	fired      bool
	interacted bool
	abandoned  bool
	timer      loop.Timer
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(s *Sequencer) {
		s.log = log
	}
}

// WithMetrics records outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Sequencer) {
		s.metrics = m
	}
}

// New creates a sequencer that calls fire with the ready generation.
func New(sched loop.Scheduler, fire func(gen uint64), opts ...Option) *Sequencer {
	s := &Sequencer{
		sched:   sched,
		timeout: DefaultTimeout,
		fire:    fire,
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithName("startup")
	return s
}

// Generation returns the armed generation.
func (s *Sequencer) Generation() uint64 {
	return s.gen
}

// Arm starts waiting for gen. Per-generation inputs and flags reset; the
// container input is kept. Generations must increase and start at 1.
func (s *Sequencer) Arm(gen uint64) {
	if gen <= s.gen {
		return
	}
	s.stopTimer()
	s.gen = gen
	s.have &= Container
	s.fired = false
	s.interacted = false
	s.abandoned = false

	armed := s.gen
	s.timer = s.sched.AfterFunc(s.timeout, func() {
		s.expire(armed)
	})
	s.log.V(1).Info("armed", "generation", gen, "timeout", s.timeout)
}

// Offer marks input as present for gen and fires if the join is complete.
// Offers for any other generation are dropped.
func (s *Sequencer) Offer(gen uint64, input Input) {
	if input == Container {
		s.have |= Container
		s.try()
		return
	}
	if gen != s.gen {
		s.log.V(2).Info("dropping stale input", "input", input.String(), "generation", gen, "current", s.gen)
		return
	}
	s.have |= input
	s.try()
}

// Withdraw removes input, for example when the container detaches.
func (s *Sequencer) Withdraw(input Input) {
	s.have &^= input
}

// Interrupt records user interaction for gen. The initial scroll for that
// generation will not fire.
func (s *Sequencer) Interrupt(gen uint64) {
	if gen != s.gen || s.interacted {
		return
	}
	s.interacted = true
	if !s.fired && !s.abandoned {
		s.stopTimer()
		s.metrics.RecordStartup(context.Background(), OutcomeInterrupted)
		s.log.V(1).Info("interrupted by user", "generation", gen)
	}
}

// Fired reports whether gen's initial scroll has run.
func (s *Sequencer) Fired(gen uint64) bool {
	return gen == s.gen && s.fired
}

// Waiting reports whether the current generation can still fire.
func (s *Sequencer) Waiting() bool {
	return s.gen != 0 && !s.fired && !s.interacted && !s.abandoned
}

// Missing returns the inputs not yet present.
func (s *Sequencer) Missing() Input {
	return all &^ s.have
}

// Close stops the timeout timer.
func (s *Sequencer) Close() {
	s.stopTimer()
	s.abandoned = true
}

func (s *Sequencer) try() {
	if !s.Waiting() || s.have != all {
		return
	}
	// Flags first: fire may re-enter Offer.
	s.fired = true
	s.stopTimer()
	s.metrics.RecordStartup(context.Background(), OutcomeFired)
	s.log.V(1).Info("initial sync", "generation", s.gen)
	s.fire(s.gen)
}

func (s *Sequencer) expire(gen uint64) {
	if gen != s.gen || !s.Waiting() {
		return
	}
	s.abandoned = true
	s.timer = nil
	s.metrics.RecordStartup(context.Background(), OutcomeAbandoned)
	s.log.V(1).Info("initial sync abandoned", "generation", gen, "missing", s.missingNames())
}

func (s *Sequencer) missingNames() []string {
	var names []string
	for _, in := range []Input{Container, Compile, Metrics, Anchors} {
		if s.have&in == 0 {
			names = append(names, in.String())
		}
	}
	return names
}

func (s *Sequencer) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
