// Package reactivestreams bridges host push streams and the credit-based
// Publisher/Subscriber protocol.
//
// WriteStream is a host write stream that publishes everything written to it
// to any number of subscribers, in lock-step with the slowest one.
// ReadStream is a Subscriber that re-exposes what it receives as a host read
// stream with pause/resume/fetch, requesting from upstream in batches.
//
// Both adapters keep their state under a mutex and hand every user callback
// to a core.Context, so callbacks run one at a time and never inside the
// caller's stack.
package reactivestreams

// Publisher produces items for subscribers that signal demand
type Publisher[T any] interface {
	// Subscribe registers s. OnSubscribe is delivered asynchronously.
	Subscribe(s Subscriber[T]) error
}

// Subscriber consumes items it asked for through its Subscription
type Subscriber[T any] interface {
	// OnSubscribe hands over the Subscription; nothing flows until Request is called
	OnSubscribe(s Subscription)

	// OnNext receives one item; never called more times than requested
	OnNext(item T)

	// OnError is a terminal signal
	OnError(err error)

	// OnComplete is a terminal signal
	OnComplete()
}

// Subscription is the demand channel between one Subscriber and its Publisher
type Subscription interface {
	// Request grants n more items. n <= 0 is a protocol violation that
	// terminates the subscription with an error.
	Request(n int64)

	// Cancel asks the publisher to stop; items already dispatched may still arrive
	Cancel()
}

// SubscriberFuncs adapts plain functions to Subscriber. Nil fields are ignored.
// Use it by pointer so each value has its own identity.
type SubscriberFuncs[T any] struct {
	Subscribe func(s Subscription)
	Next      func(item T)
	Error     func(err error)
	Complete  func()
}

func (f *SubscriberFuncs[T]) OnSubscribe(s Subscription) {
	if f.Subscribe != nil {
		f.Subscribe(s)
	}
}

func (f *SubscriberFuncs[T]) OnNext(item T) {
	if f.Next != nil {
		f.Next(item)
	}
}

func (f *SubscriberFuncs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f *SubscriberFuncs[T]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}
