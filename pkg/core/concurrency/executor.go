package concurrency

import (
	"context"
	"errors"
)

var (
	// ErrExecutorClosed is returned when submitting to an executor that has been shut down
	ErrExecutorClosed = errors.New("executor is closed")

	// ErrNilTask is returned when submitting a nil task
	ErrNilTask = errors.New("task cannot be nil")
)

// ExecutorStats provides statistics about executor performance
type ExecutorStats struct {
	QueuedTasks    int64 // Current number of queued tasks
	CompletedTasks int64 // Total completed tasks
	PanickedTasks  int64 // Tasks that panicked (recovered)
	RejectedTasks  int64 // Tasks submitted after shutdown
}

// Executor abstracts goroutine management and task execution
// Hides channel operations and goroutine creation from application code
type Executor interface {
	// Submit queues a task for execution
	// Never blocks; returns ErrExecutorClosed once the executor is shut down
	Submit(task Task) error

	// Shutdown stops accepting tasks and waits for queued tasks to run
	// (up to ctx timeout)
	Shutdown(ctx context.Context) error

	// Stats returns current executor statistics
	Stats() ExecutorStats
}
