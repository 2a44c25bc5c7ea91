package concurrency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func TestNewSerialExecutor(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), DefaultExecutorConfig())
	if executor == nil {
		t.Fatal("NewSerialExecutor() should not return nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := executor.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSerialExecutor_SubmitNil(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), DefaultExecutorConfig())
	defer executor.Shutdown(context.Background())

	if err := executor.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("Submit(nil) error = %v, want ErrNilTask", err)
	}
}

func TestSerialExecutor_RunsInOrder(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), DefaultExecutorConfig())

	const n = 1000
	got := make([]int, 0, n)
	for i := 0; i < n; i++ {
		i := i
		err := executor.Submit(NewCallbackTask("append", func() {
			got = append(got, i)
		}))
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	// Shutdown drains the queue before returning
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := executor.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if len(got) != n {
		t.Fatalf("ran %d tasks, want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestSerialExecutor_NeverRunsConcurrently(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), DefaultExecutorConfig())

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				executor.Submit(NewCallbackTask("overlap", func() {
					mu.Lock()
					active++
					if active > maxActive {
						maxActive = active
					}
					mu.Unlock()
					time.Sleep(time.Microsecond)
					mu.Lock()
					active--
					mu.Unlock()
				}))
			}
		}()
	}
	wg.Wait()
	executor.Shutdown(context.Background())

	if maxActive != 1 {
		t.Errorf("max concurrent tasks = %d, want 1", maxActive)
	}
}

func TestSerialExecutor_RecoversPanics(t *testing.T) {
	logger := &recordingLogger{}
	executor := NewSerialExecutor(context.Background(), ExecutorConfig{Name: "test", Logger: logger})

	executor.Submit(NewCallbackTask("boom", func() { panic("boom") }))
	executor.Submit(NewNamedTask("failing", func(ctx context.Context) error {
		return errors.New("failed")
	}))
	ran := false
	executor.Submit(NewCallbackTask("after", func() { ran = true }))

	executor.Shutdown(context.Background())

	if !ran {
		t.Error("task after a panicking task should still run")
	}
	stats := executor.Stats()
	if stats.PanickedTasks != 1 {
		t.Errorf("Stats().PanickedTasks = %d, want 1", stats.PanickedTasks)
	}
	if stats.CompletedTasks != 3 {
		t.Errorf("Stats().CompletedTasks = %d, want 3", stats.CompletedTasks)
	}
	if logger.count() != 2 {
		t.Fatalf("logged %d errors, want 2", logger.count())
	}
	msgs := logger.messages()
	if !strings.Contains(msgs[0], "task boom panicked") {
		t.Errorf("panic log = %q, want it to name task boom", msgs[0])
	}
	if !strings.Contains(msgs[1], "task failing failed") {
		t.Errorf("failure log = %q, want it to name task failing", msgs[1])
	}
}

func TestNewCallbackTask(t *testing.T) {
	ran := false
	task := NewCallbackTask("lane-a", func() { ran = true })

	if task.Name() != "lane-a" {
		t.Errorf("Name() = %q, want lane-a", task.Name())
	}
	if err := task.Execute(context.Background()); err != nil {
		t.Errorf("Execute() error = %v, want nil", err)
	}
	if !ran {
		t.Error("Execute() did not run the callback")
	}
}

func TestSerialExecutor_SubmitAfterShutdown(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), DefaultExecutorConfig())
	executor.Shutdown(context.Background())

	err := executor.Submit(TaskFunc(func(ctx context.Context) error { return nil }))
	if !errors.Is(err, ErrExecutorClosed) {
		t.Errorf("Submit() after shutdown error = %v, want ErrExecutorClosed", err)
	}
	if executor.Stats().RejectedTasks != 1 {
		t.Errorf("Stats().RejectedTasks = %d, want 1", executor.Stats().RejectedTasks)
	}
}

func TestSerialExecutor_ShutdownTimeout(t *testing.T) {
	executor := NewSerialExecutor(context.Background(), DefaultExecutorConfig())
	release := make(chan struct{})
	executor.Submit(NewCallbackTask("block", func() { <-release }))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := executor.Shutdown(ctx); err == nil {
		t.Error("Shutdown() should time out while a task is blocked")
	}
}
