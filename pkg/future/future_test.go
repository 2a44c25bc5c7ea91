package future

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// queueDispatcher records dispatched callbacks and runs them on demand
type queueDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func (d *queueDispatcher) RunOnContext(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

func (d *queueDispatcher) runAll() int {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()
	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

func TestFuture_Await(t *testing.T) {
	promise := NewPromise[string](nil)

	// Complete asynchronously
	go func() {
		time.Sleep(10 * time.Millisecond)
		promise.Complete("test-result")
	}()

	result, err := promise.Future().Await(context.Background())
	if err != nil {
		t.Fatalf("Await() error = %v, want nil", err)
	}
	if result != "test-result" {
		t.Errorf("Await() = %v, want test-result", result)
	}
}

func TestFuture_Await_Error(t *testing.T) {
	promise := NewPromise[string](nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		promise.Fail(errors.New("test error"))
	}()

	result, err := promise.Future().Await(context.Background())
	if err == nil {
		t.Error("Await() error = nil, want error")
	}
	if result != "" {
		t.Errorf("Await() = %v, want empty string", result)
	}
}

func TestFuture_Await_ContextCancel(t *testing.T) {
	promise := NewPromise[string](nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := promise.Future().Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestPromise_SettlesOnce(t *testing.T) {
	promise := NewPromise[int](nil)

	if !promise.Complete(1) {
		t.Error("first Complete() should return true")
	}
	if promise.Complete(2) {
		t.Error("second Complete() should return false")
	}
	if promise.Fail(errors.New("late")) {
		t.Error("Fail() after Complete() should return false")
	}

	v, err := promise.Future().Await(context.Background())
	if v != 1 || err != nil {
		t.Errorf("Await() = (%v, %v), want (1, nil)", v, err)
	}
}

func TestFuture_CallbacksGoThroughDispatcher(t *testing.T) {
	d := &queueDispatcher{}
	promise := NewPromise[int](d)

	var got []string
	promise.Future().
		OnSuccess(func(v int) { got = append(got, "success") }).
		OnFailure(func(err error) { got = append(got, "failure") }).
		OnComplete(func(v int, err error) { got = append(got, "complete") })

	promise.Complete(42)
	if len(got) != 0 {
		t.Fatalf("callbacks ran inline: %v", got)
	}

	if n := d.runAll(); n != 3 {
		t.Errorf("dispatched %d callbacks, want 3", n)
	}
	if len(got) != 2 || got[0] != "success" || got[1] != "complete" {
		t.Errorf("callbacks = %v, want [success complete]", got)
	}

	// Registering on a completed future still dispatches
	promise.Future().OnSuccess(func(v int) { got = append(got, "late") })
	d.runAll()
	if got[len(got)-1] != "late" {
		t.Errorf("late callback did not run: %v", got)
	}
}

func TestMap(t *testing.T) {
	promise := NewPromise[int](nil)
	mapped := Map(promise.Future(), func(n int) string {
		if n == 10 {
			return "ten"
		}
		return "other"
	})

	promise.Complete(10)
	if v, err := mapped.Await(context.Background()); v != "ten" || err != nil {
		t.Errorf("Map().Await() = (%v, %v), want (ten, nil)", v, err)
	}

	failing := NewPromise[int](nil)
	mappedErr := Map(failing.Future(), func(n int) string { return "unused" })
	failing.Fail(errors.New("test error"))
	if _, err := mappedErr.Await(context.Background()); err == nil {
		t.Error("Map() should propagate failure")
	}
}
