package reactivestreams

import (
	"errors"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fluxorio/fluxor-streams/pkg/core"
	"github.com/fluxorio/fluxor-streams/pkg/core/failfast"
	"github.com/fluxorio/fluxor-streams/pkg/future"
	"github.com/fluxorio/fluxor-streams/pkg/streams"
)

var (
	_ Publisher[any]           = (*WriteStream[any])(nil)
	_ streams.WriteStream[any] = (*WriteStream[any])(nil)
)

// WriteStream is a host write stream that publishes what is written to it.
//
// Written items wait in a single queue. A delivery pass hands the head of
// the queue to every subscriber at once, as many items as the subscriber
// with the least credit allows, so all subscribers see the same items in
// the same order. With no subscribers items simply accumulate.
//
// WriteQueueFull and DrainHandler give the writer its own backpressure
// signal, independent from subscriber credit.
type WriteStream[T any] struct {
	ctx     core.Context
	id      string
	name    string
	logger  core.Logger
	metrics Metrics

	mu           sync.Mutex
	subs         []*subscription[T]
	index        map[Subscriber[T]]*subscription[T]
	pending      []pendingItem[T]
	maxSize      int
	drainHandler func()
	closed       bool
}

type pendingItem[T any] struct {
	value   T
	promise *future.Promise[future.Void]
}

// subscription is the registration of one subscriber
type subscription[T any] struct {
	stream     *WriteStream[T]
	subscriber Subscriber[T]
	credit     credit // guarded by stream.mu
	active     bool   // guarded by stream.mu

	// cancelled stops deliveries already scheduled on the context
	cancelled atomic.Bool
	// terminated is only touched on the context
	terminated bool
}

func (s *subscription[T]) Request(n int64) { s.stream.request(s, n) }
func (s *subscription[T]) Cancel()         { s.stream.cancel(s) }

// NewWriteStream creates an open WriteStream delivering on ctx
func NewWriteStream[T any](ctx core.Context, opts ...Option) *WriteStream[T] {
	failfast.NotNil(ctx, "context")
	o := newOptions(ctx, "write_stream", opts)
	id := core.NewStreamID("write_stream")

	return &WriteStream[T]{
		ctx:     ctx,
		id:      id,
		name:    o.name,
		logger:  core.With(o.logger, "stream", id),
		metrics: o.metrics,
		index:   make(map[Subscriber[T]]*subscription[T]),
		maxSize: o.writeQueueMaxSize,
	}
}

// ID returns the stream's unique id
func (w *WriteStream[T]) ID() string {
	return w.id
}

// Subscribe registers s with zero credit; OnSubscribe follows on the context.
// Subscribing the same subscriber twice signals ErrDuplicateSubscription to
// it and leaves the existing registration in place. Since both registrations
// share one value, that subscriber keeps receiving OnNext after the OnError,
// so OnError is not terminal in this one case. A subscriber that must treat
// errors as terminal has to cancel its subscription when it sees
// ErrDuplicateSubscription.
func (w *WriteStream[T]) Subscribe(s Subscriber[T]) error {
	if s == nil {
		return core.NewError(core.CodeInvalidArgument, "subscriber is nil")
	}
	if !reflect.TypeOf(s).Comparable() {
		return core.NewError(core.CodeInvalidArgument, "subscriber of type %T is not comparable, pass a pointer", s)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return core.ErrClosed
	}
	if _, dup := w.index[s]; dup {
		w.metrics.ProtocolViolation(w.name, core.CodeDuplicateSubscription)
		w.logger.Warnf("rejected duplicate subscription of %T", s)
		w.ctx.RunOnContext(func() {
			defer w.recoverCallback("OnError")
			s.OnError(core.ErrDuplicateSubscription)
		})
		return nil
	}

	sub := &subscription[T]{stream: w, subscriber: s, active: true}
	w.subs = append(w.subs, sub)
	w.index[s] = sub
	w.metrics.SubscriberAdded(w.name)
	w.logger.Debugf("subscriber %T registered, %d active", s, len(w.subs))

	w.ctx.RunOnContext(func() {
		defer func() {
			if r := recover(); r != nil {
				w.failSubscriber(sub, core.FromPanic(r))
			}
		}()
		s.OnSubscribe(sub)
	})
	return nil
}

// Write queues item and runs a delivery pass. The returned future succeeds
// once the item has been dispatched to every subscriber and fails with
// ErrClosed if the stream closes first.
func (w *WriteStream[T]) Write(item T) (*future.Future[future.Void], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, core.ErrClosed
	}
	promise := future.NewPromise[future.Void](w.ctx)
	w.pending = append(w.pending, pendingItem[T]{value: item, promise: promise})
	w.metrics.ItemWritten(w.name)
	w.checkSendLocked()
	w.metrics.PendingItems(w.name, len(w.pending))
	return promise.Future(), nil
}

// SetWriteQueueMaxSize sets the pending count at which WriteQueueFull reports true
func (w *WriteStream[T]) SetWriteQueueMaxSize(n int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return core.ErrClosed
	}
	if n < 1 {
		return core.NewError(core.CodeInvalidArgument, "write queue max size must be >= 1, got %d", n)
	}
	w.maxSize = n
	return nil
}

// WriteQueueFull reports whether the pending queue reached its max size
func (w *WriteStream[T]) WriteQueueFull() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false, core.ErrClosed
	}
	return len(w.pending) >= w.maxSize, nil
}

// DrainHandler registers a one-shot callback run on the context once a
// delivery pass leaves the queue below its max size. If the queue is
// already below it, h is scheduled right away: a writer that saw
// WriteQueueFull may race a subscriber's Request.
func (w *WriteStream[T]) DrainHandler(h func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return core.ErrClosed
	}
	if h != nil && len(w.pending) < w.maxSize {
		w.drainHandler = nil
		w.ctx.RunOnContext(func() {
			defer w.recoverCallback("drain handler")
			h()
		})
		return nil
	}
	w.drainHandler = h
	return nil
}

// Close completes every subscriber and fails every pending write with
// ErrClosed. Closing twice is a no-op.
func (w *WriteStream[T]) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	for _, sub := range w.subs {
		sub := sub
		sub.active = false
		w.ctx.RunOnContext(func() { w.completeSubscriber(sub) })
		w.metrics.SubscriberRemoved(w.name, "closed")
	}
	for _, item := range w.pending {
		item.promise.Fail(core.ErrClosed)
	}

	w.logger.Debugf("closed with %d subscribers and %d pending items", len(w.subs), len(w.pending))
	w.subs = nil
	w.index = nil
	w.pending = nil
	w.drainHandler = nil
	w.metrics.PendingItems(w.name, 0)
	return nil
}

// End closes the stream
func (w *WriteStream[T]) End() error {
	return w.Close()
}

func (w *WriteStream[T]) request(sub *subscription[T], n int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !sub.active {
		return
	}
	if err := sub.credit.grant(n); err != nil {
		w.removeLocked(sub, "violation")
		w.metrics.ProtocolViolation(w.name, codeOf(err))
		w.logger.Warnf("subscriber %T terminated: %v", sub.subscriber, err)
		w.ctx.RunOnContext(func() { w.errorSubscriber(sub, err) })
	}
	w.checkSendLocked()
}

func (w *WriteStream[T]) cancel(sub *subscription[T]) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sub.cancelled.Store(true)
	if !w.removeLocked(sub, "cancelled") {
		return
	}
	w.logger.Debugf("subscriber %T cancelled, %d active", sub.subscriber, len(w.subs))
	// The slowest subscriber may have left
	w.checkSendLocked()
}

// checkSendLocked is the delivery pass
func (w *WriteStream[T]) checkSendLocked() {
	if len(w.subs) == 0 {
		return
	}

	n := int64(len(w.pending))
	for _, sub := range w.subs {
		n = min(n, sub.credit.available())
	}

	if n > 0 {
		subs := slices.Clone(w.subs)
		for i := int64(0); i < n; i++ {
			item := w.pending[0]
			w.pending[0] = pendingItem[T]{}
			w.pending = w.pending[1:]

			for _, sub := range subs {
				sub.credit.consume(1)
				w.scheduleNext(sub, item.value)
			}
			promise := item.promise
			w.ctx.RunOnContext(func() { promise.Complete(future.Void{}) })
		}
		w.metrics.ItemsDelivered(w.name, int(n)*len(subs))
		w.metrics.PendingItems(w.name, len(w.pending))
	}

	if w.drainHandler != nil && len(w.pending) < w.maxSize {
		h := w.drainHandler
		w.drainHandler = nil
		w.ctx.RunOnContext(func() {
			defer w.recoverCallback("drain handler")
			h()
		})
	}
}

func (w *WriteStream[T]) scheduleNext(sub *subscription[T], item T) {
	w.ctx.RunOnContext(func() {
		if sub.terminated || sub.cancelled.Load() {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				w.failSubscriber(sub, core.FromPanic(r))
			}
		}()
		sub.subscriber.OnNext(item)
	})
}

// removeLocked drops sub from the registration set, reporting whether it was there
func (w *WriteStream[T]) removeLocked(sub *subscription[T], reason string) bool {
	if !sub.active {
		return false
	}
	sub.active = false
	delete(w.index, sub.subscriber)
	w.subs = slices.DeleteFunc(w.subs, func(s *subscription[T]) bool { return s == sub })
	w.metrics.SubscriberRemoved(w.name, reason)
	return true
}

// failSubscriber runs on the context after a subscriber callback panicked
func (w *WriteStream[T]) failSubscriber(sub *subscription[T], err error) {
	w.mu.Lock()
	if w.removeLocked(sub, "failed") {
		w.checkSendLocked()
	}
	w.mu.Unlock()

	w.logger.Warnf("subscriber %T failed: %v", sub.subscriber, err)
	w.errorSubscriber(sub, err)
}

func (w *WriteStream[T]) errorSubscriber(sub *subscription[T], err error) {
	if sub.terminated {
		return
	}
	sub.terminated = true
	defer w.recoverCallback("OnError")
	sub.subscriber.OnError(err)
}

func (w *WriteStream[T]) completeSubscriber(sub *subscription[T]) {
	if sub.terminated || sub.cancelled.Load() {
		return
	}
	sub.terminated = true
	defer w.recoverCallback("OnComplete")
	sub.subscriber.OnComplete()
}

func (w *WriteStream[T]) recoverCallback(name string) {
	if r := recover(); r != nil {
		w.logger.Errorf("%s panicked: %v", name, r)
	}
}

func codeOf(err error) string {
	var e *core.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "UNKNOWN"
}
