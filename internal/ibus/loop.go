package ibus

import (
	"context"
	"errors"
)

// ErrStopped is returned by Call once the loop has stopped.
var ErrStopped = errors.New("ibus: loop stopped")

// Loop runs functions one at a time on a single goroutine. Sessions are not
// safe for concurrent use, so every bus call and every configuration
// notification goes through the loop.
type Loop struct {
	queue chan func()
	done  chan struct{}
}

// NewLoop returns a loop with room for size queued functions.
func NewLoop(size int) *Loop {
	return &Loop{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// Run executes queued functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post queues fn without waiting. It reports false once the loop stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case <-l.done:
		return false
	case l.queue <- fn:
		return true
	}
}

// Call runs fn on the loop and waits for it to return.
func (l *Loop) Call(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }
