package fsutil

import (
	"sync"
	"time"
)

// Debouncer coalesces repeated triggers into a single trailing call.
// Each Trigger cancels the pending call and reschedules it with the newest
// argument.
type Debouncer[T any] struct {
	wait    time.Duration
	fn      func(T)
	mutex   sync.Mutex
	timer   *time.Timer
	pending bool
	gen     uint64
	arg     T
	stopped bool
}

// NewDebouncer creates a debouncer that calls fn after wait has elapsed
// without a new trigger
func NewDebouncer[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		wait: wait,
		fn:   fn,
	}
}

// Trigger schedules fn(arg), replacing any call that is still pending
func (d *Debouncer[T]) Trigger(arg T) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.arg = arg
	d.pending = true
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Pending reports whether a call is scheduled
func (d *Debouncer[T]) Pending() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.pending
}

// Flush runs the pending call now, if any
func (d *Debouncer[T]) Flush() {
	d.mutex.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.mutex.Unlock()

	d.fire(gen)
}

// Stop cancels the pending call; later triggers are ignored
func (d *Debouncer[T]) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.stopped = true
}

// fire runs fn only if no newer trigger superseded generation gen
func (d *Debouncer[T]) fire(gen uint64) {
	d.mutex.Lock()
	if !d.pending || d.stopped || gen != d.gen {
		d.mutex.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	d.timer = nil
	d.mutex.Unlock()

	d.fn(arg)
}
