package reactivestreams

// Metrics receives stream events. Implementations must be safe for
// concurrent use; calls are made while the stream holds its lock, so they
// must not call back into the stream.
type Metrics interface {
	// ItemWritten counts an item accepted by a WriteStream
	ItemWritten(stream string)

	// ItemsDelivered counts OnNext dispatches (items times subscribers)
	ItemsDelivered(stream string, n int)

	// SubscriberAdded counts a new registration
	SubscriberAdded(stream string)

	// SubscriberRemoved counts a registration ending; reason is one of
	// "cancelled", "failed", "violation", "closed"
	SubscriberRemoved(stream string, reason string)

	// PendingItems reports the current queue or buffer length
	PendingItems(stream string, n int)

	// ProtocolViolation counts a violation by its error code
	ProtocolViolation(stream string, code string)

	// UpstreamRequested counts demand a ReadStream sent upstream
	UpstreamRequested(stream string, n int64)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) ItemWritten(string)               {}
func (NopMetrics) ItemsDelivered(string, int)       {}
func (NopMetrics) SubscriberAdded(string)           {}
func (NopMetrics) SubscriberRemoved(string, string) {}
func (NopMetrics) PendingItems(string, int)         {}
func (NopMetrics) ProtocolViolation(string, string) {}
func (NopMetrics) UpstreamRequested(string, int64)  {}
