package debounce

import (
	"context"
	"sync"
	"time"
)

// Clock schedules one-shot callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a single scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer; false means the callback already started or the
	// timer was stopped before.
	Stop() bool
	// Wait blocks until the timer can no longer run its callback: either it
	// was stopped before firing or its callback returned.
	Wait(ctx context.Context) error
}

type realClock struct{}

// RealClock is backed by time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	rt := &realTimer{done: make(chan struct{})}
	rt.t = time.AfterFunc(d, func() {
		defer rt.finish()
		f()
	})
	return rt
}

type realTimer struct {
	t    *time.Timer
	done chan struct{}
	once sync.Once
}

func (rt *realTimer) finish() {
	rt.once.Do(func() { close(rt.done) })
}

func (rt *realTimer) Stop() bool {
	if rt.t.Stop() {
		rt.finish()
		return true
	}
	return false
}

func (rt *realTimer) Wait(ctx context.Context) error {
	select {
	case <-rt.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
