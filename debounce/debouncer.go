// Package debounce coalesces bursts of calls into a single delayed run of
// the most recently submitted action.
//
// Each submission resets the quiet window; only the action submitted last
// before the window expires runs. A Debouncer owns at most one armed timer
// and releases it only through Dispose (or Close).
package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type State int

const (
	StateIdle State = iota
	StateArmed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// Observer receives lifecycle notifications. Implementations must not block
// and must not call back into the Debouncer.
type Observer interface {
	Scheduled()
	Superseded()
	Fired()
}

type nopObserver struct{}

func (nopObserver) Scheduled()  {}
func (nopObserver) Superseded() {}
func (nopObserver) Fired()      {}

type Option func(*Debouncer)

func WithClock(c Clock) Option {
	return func(d *Debouncer) {
		if c != nil {
			d.clock = c
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Debouncer) {
		if o != nil {
			d.observer = o
		}
	}
}

type Debouncer struct {
	delay    time.Duration
	clock    Clock
	observer Observer

	// mu guards every field below as one unit. It is never held while an
	// action runs or while waiting on a timer.
	mu       sync.Mutex
	pending  func()
	timer    Timer
	gen      uint64
	disposed bool
}

func New(delay time.Duration, opts ...Option) (*Debouncer, error) {
	if delay < 0 {
		return nil, errors.Wrapf(ErrNegativeDelay, "got %s", delay)
	}

	d := &Debouncer{
		delay:    delay,
		clock:    RealClock(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// MustNew is like New but panics on a negative delay.
func MustNew(delay time.Duration, opts ...Option) *Debouncer {
	d, err := New(delay, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.disposed:
		return StateDisposed
	case d.pending != nil:
		return StateArmed
	}
	return StateIdle
}

// Debounce replaces the pending action with fn and restarts the quiet
// window. The replaced action never runs.
func (d *Debouncer) Debounce(fn func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return ErrDisposed
	}
	if fn == nil {
		return ErrNilAction
	}

	d.replace(fn)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.arm()

	return nil
}

// DebounceAsync is like Debounce, but fn is started on its own goroutine
// when the quiet window expires, so the timer callback returns at once.
//
// The superseded timer is stopped before the new one is armed, but waiting
// for a callback it already started happens after the lock is released,
// since that callback needs the lock. A nil error means the old timer is
// gone and the new one is armed; it says nothing about fn having run. ctx
// bounds only that wait.
func (d *Debouncer) DebounceAsync(ctx context.Context, fn func()) error {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return ErrDisposed
	}
	if fn == nil {
		d.mu.Unlock()
		return ErrNilAction
	}

	d.replace(func() { go fn() })
	prev := d.timer
	if prev != nil {
		prev.Stop()
	}
	d.arm()
	d.mu.Unlock()

	if prev == nil {
		return nil
	}
	if err := prev.Wait(ctx); err != nil {
		return errors.Wrap(err, "waiting for superseded timer")
	}

	return nil
}

// Dispose cancels the pending action and rejects every later submission.
// An action that already started keeps running. Calling it again is a
// no-op.
func (d *Debouncer) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.disposed {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = nil
	d.pending = nil
	d.gen++
	d.disposed = true
}

func (d *Debouncer) Close() error {
	d.Dispose()
	return nil
}

func (d *Debouncer) replace(fn func()) {
	if d.pending != nil {
		d.observer.Superseded()
	}
	d.pending = fn
}

// arm must be called with mu held.
func (d *Debouncer) arm() {
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
	d.observer.Scheduled()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.disposed || gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.observer.Fired()
	fn()
}
