package reactivestreams

import (
	"sync"

	"github.com/fluxorio/fluxor-streams/pkg/core"
	"github.com/fluxorio/fluxor-streams/pkg/core/failfast"
	"github.com/fluxorio/fluxor-streams/pkg/streams"
)

var (
	_ Subscriber[any]         = (*ReadStream[any])(nil)
	_ streams.ReadStream[any] = (*ReadStream[any])(nil)
)

type readState int

const (
	readUnsubscribed readState = iota
	readSubscribed
	readCompleted
	readFailed
)

func (s readState) String() string {
	switch s {
	case readUnsubscribed:
		return "unsubscribed"
	case readSubscribed:
		return "subscribed"
	case readCompleted:
		return "completed"
	case readFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReadStream is a Subscriber exposed as a host read stream.
//
// It requests batchSize items at a time from upstream, and only once the
// previous batch has been handed to the handler, so read-ahead never exceeds
// one batch. Items arriving while the stream is paused (or has no handler)
// are buffered and replayed in arrival order. The handler, end handler and
// exception handler run on the context.
type ReadStream[T any] struct {
	ctx       core.Context
	id        string
	name      string
	logger    core.Logger
	metrics   Metrics
	batchSize int64

	mu               sync.Mutex
	state            readState
	subscription     Subscription
	handler          func(T)
	endHandler       func()
	exceptionHandler func(error)
	demand           Demand
	tokens           int64 // requested upstream, not yet handed to the handler
	inFlight         int64 // requested upstream, not yet arrived
	pending          []T
	draining         bool
	endDelivered     bool
}

// NewReadStream creates a ReadStream; subscribe it to a Publisher to start
func NewReadStream[T any](ctx core.Context, opts ...Option) *ReadStream[T] {
	failfast.NotNil(ctx, "context")
	o := newOptions(ctx, "read_stream", opts)
	id := core.NewStreamID("read_stream")

	return &ReadStream[T]{
		ctx:       ctx,
		id:        id,
		name:      o.name,
		logger:    core.With(o.logger, "stream", id),
		metrics:   o.metrics,
		batchSize: int64(o.batchSize),
		demand:    Unbounded(),
	}
}

// ID returns the stream's unique id
func (r *ReadStream[T]) ID() string {
	return r.id
}

// OnSubscribe accepts the first subscription; any later one is cancelled
func (r *ReadStream[T]) OnSubscribe(s Subscription) {
	failfast.NotNil(s, "subscription")

	r.mu.Lock()
	if r.subscription != nil || r.state != readUnsubscribed {
		state := r.state
		r.mu.Unlock()
		r.metrics.ProtocolViolation(r.name, core.CodeDuplicateSubscription)
		r.logger.Warnf("cancelling extra subscription, stream is %s", state)
		s.Cancel()
		return
	}
	r.subscription = s
	r.state = readSubscribed
	n, upstream := r.checkRequestLocked()
	r.mu.Unlock()

	r.logger.Debug("subscribed")
	r.requestUpstream(upstream, n)
}

// OnNext buffers item for the handler. An item nobody requested fails the
// stream with ErrUnsolicitedData and cancels the upstream subscription.
func (r *ReadStream[T]) OnNext(item T) {
	r.mu.Lock()
	if r.state == readCompleted || r.state == readFailed {
		state := r.state
		r.mu.Unlock()
		r.logger.Warnf("ignored item after stream %s", state)
		return
	}
	if r.inFlight == 0 {
		upstream := r.subscription
		r.failLocked()
		r.mu.Unlock()

		r.metrics.ProtocolViolation(r.name, core.CodeUnsolicitedData)
		r.logger.Warn(core.ErrUnsolicitedData.Message)
		r.ctx.RunOnContext(func() { r.deliverError(core.ErrUnsolicitedData) })
		if upstream != nil {
			upstream.Cancel()
		}
		return
	}

	r.inFlight--
	r.pending = append(r.pending, item)
	r.metrics.PendingItems(r.name, len(r.pending))
	r.scheduleDrainLocked()
	r.mu.Unlock()
}

// OnError fails the stream; buffered items are dropped
func (r *ReadStream[T]) OnError(err error) {
	r.mu.Lock()
	if r.state == readCompleted || r.state == readFailed {
		state := r.state
		r.mu.Unlock()
		r.logger.Warnf("ignored error after stream %s: %v", state, err)
		return
	}
	r.failLocked()
	r.mu.Unlock()

	r.ctx.RunOnContext(func() { r.deliverError(err) })
}

// OnComplete ends the stream once buffered items have been handled
func (r *ReadStream[T]) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == readCompleted || r.state == readFailed {
		r.logger.Warnf("ignored completion after stream %s", r.state)
		return
	}
	r.state = readCompleted
	r.scheduleDrainLocked()
}

// Handler installs the item handler. Items stay buffered while it is nil.
func (r *ReadStream[T]) Handler(h func(T)) {
	r.mu.Lock()
	r.handler = h
	n, upstream := r.resumeLocked()
	r.mu.Unlock()

	r.requestUpstream(upstream, n)
}

// EndHandler installs the handler called once after upstream completes
func (r *ReadStream[T]) EndHandler(h func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endHandler = h
}

// ExceptionHandler installs the handler called once on upstream error or a
// protocol violation by upstream
func (r *ReadStream[T]) ExceptionHandler(h func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptionHandler = h
}

// Pause stops delivery; arriving items are buffered
func (r *ReadStream[T]) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.demand = Finite(0)
}

// Resume makes demand unbounded and replays the buffer
func (r *ReadStream[T]) Resume() {
	r.mu.Lock()
	r.demand = Unbounded()
	n, upstream := r.resumeLocked()
	r.mu.Unlock()

	r.requestUpstream(upstream, n)
}

// Fetch adds n to the demand; n <= 0 is ignored
func (r *ReadStream[T]) Fetch(n int64) {
	if n <= 0 {
		return
	}

	r.mu.Lock()
	r.demand = r.demand.Add(n)
	req, upstream := r.resumeLocked()
	r.mu.Unlock()

	r.requestUpstream(upstream, req)
}

// resumeLocked schedules a drain if anything is waiting and reports a batch request if one is due
func (r *ReadStream[T]) resumeLocked() (int64, Subscription) {
	if len(r.pending) > 0 || (r.state == readCompleted && !r.endDelivered) {
		r.scheduleDrainLocked()
	}
	return r.checkRequestLocked()
}

// checkRequestLocked applies the batch rule: with positive demand, a
// handler and the previous batch fully handled, request one more batch
func (r *ReadStream[T]) checkRequestLocked() (int64, Subscription) {
	if r.state != readSubscribed || r.subscription == nil || r.handler == nil {
		return 0, nil
	}
	if !r.demand.Positive() || r.tokens > 0 {
		return 0, nil
	}
	r.tokens = r.batchSize
	r.inFlight = r.batchSize
	return r.batchSize, r.subscription
}

// requestUpstream must be called without holding mu
func (r *ReadStream[T]) requestUpstream(upstream Subscription, n int64) {
	if upstream == nil || n == 0 {
		return
	}
	r.metrics.UpstreamRequested(r.name, n)
	r.logger.Debugf("requesting %d items upstream", n)
	upstream.Request(n)
}

func (r *ReadStream[T]) failLocked() {
	r.state = readFailed
	r.pending = nil
	r.tokens = 0
	r.inFlight = 0
	r.metrics.PendingItems(r.name, 0)
}

func (r *ReadStream[T]) scheduleDrainLocked() {
	if r.draining {
		return
	}
	r.draining = true
	r.ctx.RunOnContext(r.drain)
}

// drain runs on the context. It hands buffered items to the handler one at
// a time, releasing the lock around each call so the handler may pause,
// resume or fetch; items that arrive meanwhile queue behind the buffer.
func (r *ReadStream[T]) drain() {
	for {
		r.mu.Lock()
		if r.state == readFailed {
			r.draining = false
			r.mu.Unlock()
			return
		}

		if len(r.pending) > 0 && r.handler != nil && r.demand.Positive() {
			item := r.pending[0]
			var zero T
			r.pending[0] = zero
			r.pending = r.pending[1:]
			r.demand = r.demand.Dec()
			r.tokens--
			h := r.handler
			r.mu.Unlock()

			r.callHandler(h, item)
			continue
		}

		r.draining = false
		var end func()
		deliverEnd := len(r.pending) == 0 && r.state == readCompleted && !r.endDelivered
		if deliverEnd {
			r.endDelivered = true
			end = r.endHandler
		}
		r.metrics.PendingItems(r.name, len(r.pending))
		n, upstream := r.checkRequestLocked()
		r.mu.Unlock()

		if end != nil {
			r.callEnd(end)
		}
		r.requestUpstream(upstream, n)
		return
	}
}

func (r *ReadStream[T]) callHandler(h func(T), item T) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("read stream handler panicked: %v", p)
		}
	}()
	h(item)
}

func (r *ReadStream[T]) callEnd(h func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("read stream end handler panicked: %v", p)
		}
	}()
	h()
}

// deliverError runs on the context
func (r *ReadStream[T]) deliverError(err error) {
	r.mu.Lock()
	h := r.exceptionHandler
	r.mu.Unlock()

	if h == nil {
		r.logger.Errorf("unhandled read stream error: %v", err)
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("read stream exception handler panicked: %v", p)
		}
	}()
	h(err)
}
