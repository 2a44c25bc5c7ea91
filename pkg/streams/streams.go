// Package streams defines the push-style host stream contracts: a
// ReadStream delivers items to a handler and can be paused, resumed or asked
// for a bounded number of items; a WriteStream accepts items, reports when
// its write queue is full and calls a drain handler when it has room again.
package streams

import (
	"github.com/fluxorio/fluxor-streams/pkg/future"
)

// ReadStream is a pausable source of items
type ReadStream[T any] interface {
	// Handler installs the item handler
	Handler(handler func(item T))

	// EndHandler installs the handler called once when the stream ends
	EndHandler(handler func())

	// ExceptionHandler installs the handler called when the stream fails
	ExceptionHandler(handler func(err error))

	// Pause stops item delivery until Resume or Fetch
	Pause()

	// Resume switches the stream to flowing mode
	Resume()

	// Fetch allows n more items to be delivered
	Fetch(n int64)
}

// WriteStream is a sink with a bounded write queue
type WriteStream[T any] interface {
	// Write queues item; the returned future completes once the item left the queue
	Write(item T) (*future.Future[future.Void], error)

	// SetWriteQueueMaxSize sets the queue length at which WriteQueueFull reports true
	SetWriteQueueMaxSize(maxSize int) error

	// WriteQueueFull reports whether writers should stop until drained
	WriteQueueFull() (bool, error)

	// DrainHandler installs a one-shot handler called when the queue has room
	// again, right away if it already has
	DrainHandler(handler func()) error

	// End ends the stream
	End() error
}
