package crawl

import (
	"context"
	"time"
)

// TimeoutResult is the outcome of WithTimeout. Exactly one of the
// following holds: TimedOut is set, or the operation completed and Value
// and Err carry its results.
type TimeoutResult[T any] struct {
	Value    T
	Err      error
	TimedOut bool
}

// WithTimeout races op against a timer of duration d. If the timer (or
// ctx) wins, onTimeout is called, the context passed to op is canceled,
// and the result reports TimedOut. The operation keeps running in the
// background until it observes its canceled context; its late result is
// discarded.
func WithTimeout[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error), onTimeout func()) TimeoutResult[T] {
	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome{value: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case o := <-done:
		return TimeoutResult[T]{Value: o.value, Err: o.err}
	case <-timer.C:
	case <-ctx.Done():
	}
	if onTimeout != nil {
		onTimeout()
	}
	return TimeoutResult[T]{TimedOut: true}
}

// Future is the handle of a fire-and-forget task. Its result may or may
// not be available by the time anybody looks; callers poll it and never
// depend on it.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn in a new goroutine and returns its Future.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Ready reports whether the task has completed.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the task result. It returns the zero value and a nil
// error while the task is still running.
func (f *Future[T]) Result() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, nil
	}
	return f.value, f.err
}

// WaitFor waits at most d for the task to complete and reports whether it did.
func (f *Future[T]) WaitFor(d time.Duration) bool {
	if d <= 0 {
		return f.Ready()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-f.done:
		return true
	case <-timer.C:
		return f.Ready()
	}
}
