package core

import (
	"context"
	"fmt"

	"github.com/fluxorio/fluxor-streams/pkg/core/concurrency"
	"github.com/fluxorio/fluxor-streams/pkg/core/failfast"
)

// Context is a serialized execution lane. Every function handed to
// RunOnContext runs after all previously submitted functions have returned,
// one at a time, on a goroutine owned by the Context. Stream adapters mutate
// their state under their own lock and hand every user callback to
// RunOnContext, so callbacks never run inside the caller's stack.
type Context interface {
	// ID uniquely identifies the context
	ID() string

	// RunOnContext schedules fn on the lane; it never blocks and never runs fn inline
	RunOnContext(fn func())

	// Logger returns the logger bound to this context
	Logger() Logger

	// Close stops accepting work and waits for queued work (up to ctx timeout)
	Close(ctx context.Context) error
}

// ContextOptions configures NewContext
type ContextOptions struct {
	// Name is a human-readable lane name used in log lines
	Name string
	// Logger defaults to NewDefaultLogger()
	Logger Logger
}

// eventLoopContext implements Context on a serial executor
type eventLoopContext struct {
	id       string
	name     string
	executor concurrency.Executor
	logger   Logger
}

// NewContext creates a new event-loop Context bound to parent
func NewContext(parent context.Context, opts ContextOptions) Context {
	failfast.NotNil(parent, "parent context")

	if opts.Name == "" {
		opts.Name = "context"
	}
	if opts.Logger == nil {
		opts.Logger = NewDefaultLogger()
	}

	id := generateContextID(opts.Name)
	logger := With(opts.Logger, "context", id)

	return &eventLoopContext{
		id:   id,
		name: opts.Name,
		executor: concurrency.NewSerialExecutor(parent, concurrency.ExecutorConfig{
			Name:   opts.Name,
			Logger: logger,
		}),
		logger: logger,
	}
}

func (c *eventLoopContext) ID() string     { return c.id }
func (c *eventLoopContext) Logger() Logger { return c.logger }

func (c *eventLoopContext) RunOnContext(fn func()) {
	failfast.NotNil(fn, "fn")
	if err := c.executor.Submit(concurrency.NewCallbackTask(c.name, fn)); err != nil {
		// Only happens after Close; the work is dropped
		c.logger.Warnf("dropped task on context %s: %v", c.id, err)
	}
}

func (c *eventLoopContext) Close(ctx context.Context) error {
	if err := c.executor.Shutdown(ctx); err != nil {
		return fmt.Errorf("context %s close failed: %w", c.id, err)
	}
	return nil
}

// Stats exposes lane statistics of an event-loop Context; ok is false for
// other Context implementations
func Stats(c Context) (stats concurrency.ExecutorStats, ok bool) {
	el, ok := c.(*eventLoopContext)
	if !ok {
		return concurrency.ExecutorStats{}, false
	}
	return el.executor.Stats(), true
}
