// Package autosave persists an editable document to the server after a
// quiescence interval, coalescing bursts of edits into a single request and
// reconciling server-assigned identity back into client state.
package autosave

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is delivered to handles that were still outstanding when the
// gate was closed.
var ErrClosed = errors.New("autosave gate closed")

// Pending resolves once the save that coalesced this trigger completes.
type Pending struct {
	ch <-chan error
}

// Done returns a channel that receives the coalesced save's result exactly once.
func (p *Pending) Done() <-chan error {
	return p.ch
}

// Wait blocks until the coalesced save completes and returns its result.
func (p *Pending) Wait() error {
	return <-p.ch
}

// Debouncer collapses rapid triggers into a single execution of fn after
// interval of quiet. Each Trigger (re)starts the countdown; only a countdown
// that completes un-superseded runs fn. Every handle accumulated since the
// last run resolves with that run's result.
//
// There is no maximum-wait bound: continuous triggering defers execution
// indefinitely. That is the intended tradeoff, it keeps server load at one
// request per burst.
type Debouncer struct {
	interval time.Duration
	fn       func() error

	mu      sync.Mutex
	timer   *time.Timer
	waiters []chan error
	closed  bool
}

// NewDebouncer creates a gate around fn with the given quiescence interval.
func NewDebouncer(interval time.Duration, fn func() error) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Trigger (re)starts the countdown and returns a handle for the eventual
// execution. Triggering a closed gate yields a handle that resolves
// immediately with ErrClosed.
func (d *Debouncer) Trigger() *Pending {
	ch := make(chan error, 1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		ch <- ErrClosed
		return &Pending{ch: ch}
	}

	d.waiters = append(d.waiters, ch)
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() { _ = d.fire() })
	return &Pending{ch: ch}
}

// Flush runs fn immediately if a countdown is pending and returns its result.
// With nothing pending it returns nil without running fn. Used on shutdown so
// the last burst of edits is not lost to the countdown.
func (d *Debouncer) Flush() error {
	d.mu.Lock()
	if d.closed || d.timer == nil {
		d.mu.Unlock()
		return nil
	}
	d.timer.Stop()
	d.mu.Unlock()

	return d.fire()
}

// Close cancels any pending countdown and resolves outstanding handles with
// ErrClosed. Further triggers resolve the same way.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	for _, ch := range d.waiters {
		ch <- ErrClosed
	}
	d.waiters = nil
}

func (d *Debouncer) fire() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.timer = nil
	waiters := d.waiters
	d.waiters = nil
	d.mu.Unlock()

	if len(waiters) == 0 {
		// countdown was flushed or superseded between Stop and fire
		return nil
	}

	err := d.fn()
	for _, ch := range waiters {
		ch <- err
	}
	return err
}
