package concurrency

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// serialExecutor runs tasks one at a time, in submission order, on a single
// goroutine. The queue is unbounded: Submit never blocks and never drops a
// task while the executor is open.
type serialExecutor struct {
	mu     sync.Mutex
	queue  []Task
	notify chan struct{} // Hidden: wakes the worker
	done   chan struct{} // Hidden: closed when the worker exits
	closed bool
	ctx    context.Context
	logger simpleLogger

	// Metrics (atomic for thread-safety)
	queuedTasks    int64
	completedTasks int64
	panickedTasks  int64
	rejectedTasks  int64
}

// ExecutorConfig configures an Executor
type ExecutorConfig struct {
	// Name is used in log lines for failed tasks
	Name string
	// Logger receives task errors and recovered panics; nil uses the default zap logger
	Logger interface {
		Errorf(format string, args ...interface{})
	}
}

// DefaultExecutorConfig returns default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{Name: "serial"}
}

// NewSerialExecutor creates an Executor that runs every task on one goroutine
// in FIFO order. Hides goroutine and channel creation from callers.
func NewSerialExecutor(ctx context.Context, config ExecutorConfig) Executor {
	if config.Name == "" {
		config.Name = "serial"
	}
	var logger simpleLogger = newDefaultSimpleLogger()
	if config.Logger != nil {
		logger = config.Logger
	}

	exec := &serialExecutor{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		ctx:    ctx,
		logger: &namedLogger{name: config.Name, next: logger},
	}
	go exec.worker() // Hidden: goroutine creation
	return exec
}

// worker drains the queue until shutdown leaves it empty
func (e *serialExecutor) worker() {
	defer close(e.done)

	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			if e.closed {
				e.mu.Unlock()
				return
			}
			e.mu.Unlock()
			<-e.notify
			continue
		}
		task := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		atomic.AddInt64(&e.queuedTasks, -1)
		e.run(task)
		atomic.AddInt64(&e.completedTasks, 1)
	}
}

// run executes one task; a panicking task must not take the lane down
func (e *serialExecutor) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&e.panickedTasks, 1)
			e.logger.Errorf("task %s panicked: %v", task.Name(), r)
		}
	}()

	if err := task.Execute(e.ctx); err != nil {
		e.logger.Errorf("task %s failed: %v", task.Name(), err)
	}
}

// Submit implements Executor interface
func (e *serialExecutor) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		atomic.AddInt64(&e.rejectedTasks, 1)
		return ErrExecutorClosed
	}
	e.queue = append(e.queue, task)
	e.mu.Unlock()
	atomic.AddInt64(&e.queuedTasks, 1)

	select {
	case e.notify <- struct{}{}:
	default:
		// worker already has a pending wake-up
	}
	return nil
}

// Shutdown implements Executor interface
func (e *serialExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
	}
	e.mu.Unlock()

	select {
	case e.notify <- struct{}{}:
	default:
	}

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// Stats implements Executor interface
func (e *serialExecutor) Stats() ExecutorStats {
	return ExecutorStats{
		QueuedTasks:    atomic.LoadInt64(&e.queuedTasks),
		CompletedTasks: atomic.LoadInt64(&e.completedTasks),
		PanickedTasks:  atomic.LoadInt64(&e.panickedTasks),
		RejectedTasks:  atomic.LoadInt64(&e.rejectedTasks),
	}
}
