// Package clock abstracts deferred work so that every callback runs on a
// single logical thread.
package clock

import (
	"context"
	"time"
)

// Timer is a handle to a pending one-shot callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; false means it already fired or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real schedules on the runtime clock and hands each expired callback to
// post, which must deliver it to the owning thread.
type Real struct {
	post func(func())
}

// NewReal returns a scheduler whose callbacks are delivered through post.
func NewReal(post func(func())) *Real {
	return &Real{post: post}
}

func (r *Real) Now() time.Time {
	return time.Now()
}

func (r *Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { r.post(f) })
}

// Loop is a single goroutine that runs posted functions in order.
type Loop struct {
	funcs chan func()
	done  chan struct{}
}

// NewLoop returns a loop; call Run to start it.
func NewLoop() *Loop {
	return &Loop{
		funcs: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

// Post queues f. After the loop stops, f is dropped.
func (l *Loop) Post(f func()) {
	select {
	case l.funcs <- f:
	case <-l.done:
	}
}

// Do runs f on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		f()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case f := <-l.funcs:
			f()
		case <-ctx.Done():
			return
		}
	}
}
