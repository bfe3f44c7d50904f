package services

import (
	"sync"
	"time"
)

// Timer is the handle returned by Clock.AfterFunc
type Timer interface {
	Stop() bool
}

// Clock abstracts time so that autosave timing can be driven by tests
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall clock
func SystemClock() Clock {
	return systemClock{}
}

// DelayedTask runs fn once after delay. Scheduling again before it fires
// restarts the delay, so at most one run is ever pending.
type DelayedTask struct {
	clock Clock
	delay time.Duration
	fn    func()

	mu       sync.Mutex
	idle     *sync.Cond
	timer    Timer
	seq      uint64
	pending  bool
	inflight int
}

// NewDelayedTask creates an idle task
func NewDelayedTask(clock Clock, delay time.Duration, fn func()) *DelayedTask {
	if clock == nil {
		clock = SystemClock()
	}
	t := &DelayedTask{clock: clock, delay: delay, fn: fn}
	t.idle = sync.NewCond(&t.mu)
	return t
}

// Schedule (re)starts the delay
func (t *DelayedTask) Schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	seq := t.seq
	t.pending = true
	t.timer = t.clock.AfterFunc(t.delay, func() { t.fire(seq) })
}

// fire ignores timers superseded by a later Schedule or Cancel. The run
// counts as in flight from the moment it stops being pending.
func (t *DelayedTask) fire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq || !t.pending {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.timer = nil
	t.inflight++
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.inflight--
		if t.inflight == 0 {
			t.idle.Broadcast()
		}
		t.mu.Unlock()
	}()
	t.fn()
}

// Wait blocks until no timer-driven run is in flight
func (t *DelayedTask) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.inflight > 0 {
		t.idle.Wait()
	}
}

// Cancel drops the pending run and reports whether there was one
func (t *DelayedTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	was := t.pending
	t.seq++
	t.pending = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	return was
}

// Flush runs a pending fn immediately on the caller's goroutine and
// reports whether it ran
func (t *DelayedTask) Flush() bool {
	if !t.Cancel() {
		return false
	}
	t.fn()
	return true
}

// Pending reports whether a run is scheduled
func (t *DelayedTask) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}
