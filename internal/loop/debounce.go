package loop

import "time"

// Debouncer coalesces rapid triggers into one call after a quiet period.
// It is not safe for concurrent use; call it from the loop goroutine.
type Debouncer struct {
	sched Scheduler
	delay time.Duration
	timer Timer
	seq   uint64
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(sched Scheduler, delay time.Duration) *Debouncer {
	return &Debouncer{sched: sched, delay: delay}
}

// Trigger restarts the quiet period; fn runs once it elapses without
// another Trigger. Only the most recent fn runs.
func (d *Debouncer) Trigger(fn func()) {
	d.Cancel()
	d.seq++
	seq := d.seq
	d.timer = d.sched.AfterFunc(d.delay, func() {
		if seq != d.seq {
			return
		}
		d.timer = nil
		fn()
	})
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}
