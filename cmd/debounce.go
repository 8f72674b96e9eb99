package main

import (
	"sync"
	"time"
)

// generic timing primitives used to tame rapidly-changing values.  each call
// site gets its own instance with its own timer; establishing a new timer
// implicitly cancels the previous pending one, so no two timers for the same
// value stream are ever active concurrently.

// debouncer delivers a value only after the input has been stable for the
// configured delay.  every intermediate set() resets the timer, so a burst
// of updates yields exactly one delivery: the last value, at least delay
// after the last update.
type debouncer[T any] struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	emit  func(T)
}

func newDebouncer[T any](delay time.Duration, emit func(T)) *debouncer[T] {
	return &debouncer[T]{
		delay: delay,
		emit:  emit,
	}
}

func (d *debouncer[T]) set(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.emit(value)
	})
}

func (d *debouncer[T]) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// throttler propagates the first change immediately, then holds further
// changes until the delay window elapses.  a value arriving inside the
// window is remembered and delivered when the window closes (opening a new
// window), so the downstream always converges on the latest input.
type throttler[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	waiting bool
	pending *T
	timer   *time.Timer
	emit    func(T)
}

func newThrottler[T any](delay time.Duration, emit func(T)) *throttler[T] {
	return &throttler[T]{
		delay: delay,
		emit:  emit,
	}
}

func (t *throttler[T]) set(value T) {
	t.mu.Lock()

	if t.waiting == true {
		t.pending = &value
		t.mu.Unlock()
		return
	}

	t.waiting = true
	t.timer = time.AfterFunc(t.delay, t.windowExpired)
	t.mu.Unlock()

	// emit outside the lock; the consumer may call back into us
	t.emit(value)
}

func (t *throttler[T]) windowExpired() {
	t.mu.Lock()

	if t.pending == nil {
		t.waiting = false
		t.mu.Unlock()
		return
	}

	value := *t.pending
	t.pending = nil
	t.timer = time.AfterFunc(t.delay, t.windowExpired)
	t.mu.Unlock()

	t.emit(value)
}

func (t *throttler[T]) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	t.waiting = false
	t.pending = nil
}
