package loop

import (
	"sort"
	"time"
)

// ManualScheduler is a deterministic Scheduler. Time only moves when
// Advance is called, and due callbacks run synchronously inside Advance in
// deadline order (ties in scheduling order).
type ManualScheduler struct {
	now     time.Time
	seq     uint64
	pending []*manualTimer
}

// NewManualScheduler creates a scheduler starting at a fixed instant.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type manualTimer struct {
	s       *ManualScheduler
	at      time.Time
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Now returns the scheduler's current time.
func (s *ManualScheduler) Now() time.Time {
	return s.now
}

// AfterFunc schedules fn at Now()+d.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.seq++
	t := &manualTimer{s: s, at: s.now.Add(d), seq: s.seq, fn: fn}
	s.pending = append(s.pending, t)
	return t
}

// Advance moves time forward by d, running every callback that becomes due.
// Callbacks scheduled by callbacks run too if they fall inside the window.
func (s *ManualScheduler) Advance(d time.Duration) {
	end := s.now.Add(d)
	for {
		next := s.nextDue(end)
		if next == nil {
			break
		}
		if next.at.After(s.now) {
			s.now = next.at
		}
		next.fired = true
		next.fn()
	}
	s.now = end
}

// Pending returns the number of scheduled callbacks that have not run.
func (s *ManualScheduler) Pending() int {
	n := 0
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (s *ManualScheduler) nextDue(end time.Time) *manualTimer {
	live := s.pending[:0]
	for _, t := range s.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	s.pending = live
	sort.SliceStable(s.pending, func(i, j int) bool {
		if !s.pending[i].at.Equal(s.pending[j].at) {
			return s.pending[i].at.Before(s.pending[j].at)
		}
		return s.pending[i].seq < s.pending[j].seq
	})
	if len(s.pending) == 0 || s.pending[0].at.After(end) {
		return nil
	}
	return s.pending[0]
}

var _ Scheduler = (*ManualScheduler)(nil)
