package concurrency

import (
	"context"
)

// Task is a unit of work run by an Executor
type Task interface {
	// Execute performs the task work; ctx is the executor's root context
	Execute(ctx context.Context) error

	// Name identifies the task in log lines
	Name() string
}

// TaskFunc lets a plain function be used as a Task
type TaskFunc func(ctx context.Context) error

// Execute implements Task interface for TaskFunc
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Name returns a default name for TaskFunc
func (f TaskFunc) Name() string {
	return "TaskFunc"
}

// NamedTask wraps a TaskFunc with a custom name
type NamedTask struct {
	name string
	task TaskFunc
}

// NewNamedTask creates a new NamedTask
func NewNamedTask(name string, task TaskFunc) *NamedTask {
	return &NamedTask{
		name: name,
		task: task,
	}
}

// Execute implements Task interface
func (nt *NamedTask) Execute(ctx context.Context) error {
	return nt.task(ctx)
}

// Name returns the task name
func (nt *NamedTask) Name() string {
	return nt.name
}

// NewCallbackTask wraps a context-free, error-free function (the shape of
// every handler dispatched on a stream context) as a task named name
func NewCallbackTask(name string, fn func()) *NamedTask {
	return NewNamedTask(name, func(context.Context) error {
		fn()
		return nil
	})
}
