package streams

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/fluxor-streams/pkg/core"
	"github.com/fluxorio/fluxor-streams/pkg/future"
)

const tracerName = "github.com/fluxorio/fluxor-streams/pkg/streams"

// PipeOption configures a Pipe
type PipeOption func(*pipeOptions)

type pipeOptions struct {
	endOnComplete  bool
	endOnFailure   bool
	tracerProvider trace.TracerProvider
	dispatcher     future.Dispatcher
	logger         core.Logger
}

// WithEndOnComplete controls whether the destination is ended when the source ends (default true)
func WithEndOnComplete(end bool) PipeOption {
	return func(o *pipeOptions) { o.endOnComplete = end }
}

// WithEndOnFailure controls whether the destination is ended when the source fails (default true)
func WithEndOnFailure(end bool) PipeOption {
	return func(o *pipeOptions) { o.endOnFailure = end }
}

// WithTracerProvider sets the provider used for the pipe span (default: global provider)
func WithTracerProvider(tp trace.TracerProvider) PipeOption {
	return func(o *pipeOptions) { o.tracerProvider = tp }
}

// WithDispatcher sets where callbacks of the pipe's result future run
func WithDispatcher(d future.Dispatcher) PipeOption {
	return func(o *pipeOptions) { o.dispatcher = d }
}

// WithPipeLogger sets the logger
func WithPipeLogger(logger core.Logger) PipeOption {
	return func(o *pipeOptions) { o.logger = logger }
}

// Pipe pumps items from a ReadStream into a WriteStream. The source is
// paused whenever the destination's write queue is full and resumed from the
// destination's drain handler.
type Pipe[T any] struct {
	src  ReadStream[T]
	dst  WriteStream[T]
	opts pipeOptions

	mu      sync.Mutex
	started bool
	done    bool
	written int64
	span    trace.Span
	result  *future.Promise[future.Void]
}

// NewPipe creates a pipe from src to dst; nothing flows until To is called
func NewPipe[T any](src ReadStream[T], dst WriteStream[T], opts ...PipeOption) *Pipe[T] {
	o := pipeOptions{
		endOnComplete: true,
		endOnFailure:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.logger == nil {
		o.logger = core.NewNopLogger()
	}

	return &Pipe[T]{
		src:    src,
		dst:    dst,
		opts:   o,
		result: future.NewPromise[future.Void](o.dispatcher),
	}
}

// PipeTo pipes src into dst and returns a future completed when src ends
func PipeTo[T any](ctx context.Context, src ReadStream[T], dst WriteStream[T], opts ...PipeOption) *future.Future[future.Void] {
	return NewPipe(src, dst, opts...).To(ctx)
}

// To starts the pipe. The returned future succeeds when the source ends and
// fails with the source's error, or with the destination's write error.
func (p *Pipe[T]) To(ctx context.Context) *future.Future[future.Void] {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return p.result.Future()
	}
	p.started = true
	_, p.span = p.opts.tracerProvider.Tracer(tracerName).Start(ctx, "streams.pipe",
		trace.WithAttributes(
			attribute.Bool("streams.pipe.end_on_complete", p.opts.endOnComplete),
			attribute.Bool("streams.pipe.end_on_failure", p.opts.endOnFailure),
		))
	p.mu.Unlock()

	p.src.EndHandler(p.handleEnd)
	p.src.ExceptionHandler(p.handleFailure)
	p.src.Handler(p.handleItem)
	p.src.Resume()
	return p.result.Future()
}

// Close stops pumping without ending the destination; the result future
// fails with core.ErrClosed unless the pipe already finished
func (p *Pipe[T]) Close() {
	p.src.Pause()
	p.finish(core.ErrClosed, false)
}

// Written returns how many items were accepted by the destination
func (p *Pipe[T]) Written() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Count completes with the number of items written once the pipe finishes
// successfully; it fails the same way the future returned by To does
func (p *Pipe[T]) Count() *future.Future[int64] {
	return future.Map(p.result.Future(), func(future.Void) int64 {
		return p.Written()
	})
}

func (p *Pipe[T]) handleItem(item T) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if _, err := p.dst.Write(item); err != nil {
		p.src.Pause()
		p.finish(err, false)
		return
	}

	p.mu.Lock()
	p.written++
	p.mu.Unlock()

	full, err := p.dst.WriteQueueFull()
	if err != nil {
		p.src.Pause()
		p.finish(err, false)
		return
	}
	if full {
		p.src.Pause()
		if err := p.dst.DrainHandler(p.src.Resume); err != nil {
			p.finish(err, false)
		}
	}
}

func (p *Pipe[T]) handleEnd() {
	p.finish(nil, p.opts.endOnComplete)
}

func (p *Pipe[T]) handleFailure(err error) {
	p.finish(err, p.opts.endOnFailure)
}

func (p *Pipe[T]) finish(err error, endDst bool) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	span := p.span
	written := p.written
	p.mu.Unlock()

	if endDst {
		if endErr := p.dst.End(); endErr != nil {
			p.opts.logger.Warnf("pipe failed to end destination: %v", endErr)
			if err == nil {
				err = endErr
			}
		}
	}

	if span != nil {
		span.SetAttributes(attribute.Int64("streams.pipe.items", written))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	if err != nil {
		p.opts.logger.Debugf("pipe finished after %d items: %v", written, err)
		p.result.Fail(err)
		return
	}
	p.result.Complete(future.Void{})
}
