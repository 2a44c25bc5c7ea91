// Package future provides type-safe, context-aware asynchronous results.
//
// A Future is read-only; the matching Promise completes it exactly once.
// Callbacks registered with OnComplete, OnSuccess and OnFailure are never
// called from inside Complete or Fail: they are handed to the Dispatcher the
// Promise was created with (normally a core.Context), so completing a future
// while holding a lock is safe.
package future

import (
	"context"
	"sync"
)

// Void is the value type of futures that only signal completion
type Void = struct{}

// Dispatcher runs callbacks later on a serialized lane; core.Context
// satisfies it
type Dispatcher interface {
	RunOnContext(fn func())
}

// Future represents the eventual result of an asynchronous operation
type Future[T any] struct {
	dispatcher Dispatcher

	mu       sync.Mutex
	done     chan struct{}
	complete bool
	value    T
	err      error
	handlers []func(T, error)
}

// Promise is the writable side of a Future
type Promise[T any] struct {
	future *Future[T]
}

// NewPromise creates a promise whose callbacks run on d. A nil d runs
// callbacks on the goroutine that completes the promise.
func NewPromise[T any](d Dispatcher) *Promise[T] {
	return &Promise[T]{
		future: &Future[T]{
			dispatcher: d,
			done:       make(chan struct{}),
		},
	}
}

// Future returns the read side of the promise
func (p *Promise[T]) Future() *Future[T] {
	return p.future
}

// Complete completes the promise with value; it returns false if the
// promise was already completed or failed
func (p *Promise[T]) Complete(value T) bool {
	return p.future.settle(value, nil)
}

// Fail fails the promise with err; it returns false if the promise was
// already completed or failed
func (p *Promise[T]) Fail(err error) bool {
	var zero T
	return p.future.settle(zero, err)
}

func (f *Future[T]) settle(value T, err error) bool {
	f.mu.Lock()
	if f.complete {
		f.mu.Unlock()
		return false
	}
	f.complete = true
	f.value = value
	f.err = err
	handlers := f.handlers
	f.handlers = nil
	close(f.done)
	f.mu.Unlock()

	for _, h := range handlers {
		f.dispatch(h, value, err)
	}
	return true
}

func (f *Future[T]) dispatch(h func(T, error), value T, err error) {
	if f.dispatcher == nil {
		h(value, err)
		return
	}
	f.dispatcher.RunOnContext(func() { h(value, err) })
}

// OnComplete registers a handler called once with the value or the error
func (f *Future[T]) OnComplete(handler func(T, error)) *Future[T] {
	f.mu.Lock()
	if !f.complete {
		f.handlers = append(f.handlers, handler)
		f.mu.Unlock()
		return f
	}
	value, err := f.value, f.err
	f.mu.Unlock()

	f.dispatch(handler, value, err)
	return f
}

// OnSuccess registers a handler called only when the future succeeds
func (f *Future[T]) OnSuccess(handler func(T)) *Future[T] {
	return f.OnComplete(func(v T, err error) {
		if err == nil {
			handler(v)
		}
	})
}

// OnFailure registers a handler called only when the future fails
func (f *Future[T]) OnFailure(handler func(error)) *Future[T] {
	return f.OnComplete(func(_ T, err error) {
		if err != nil {
			handler(err)
		}
	})
}

// IsComplete reports whether the future has a result
func (f *Future[T]) IsComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.complete
}

// Await blocks until the future completes or ctx is done
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Map transforms a successful result; failures pass through unchanged
func Map[T any, R any](f *Future[T], fn func(T) R) *Future[R] {
	mapped := NewPromise[R](f.dispatcher)
	f.OnComplete(func(v T, err error) {
		if err != nil {
			mapped.Fail(err)
			return
		}
		mapped.Complete(fn(v))
	})
	return mapped.Future()
}
