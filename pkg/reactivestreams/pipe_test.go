package reactivestreams

import (
	"context"
	"testing"
	"time"

	"github.com/fluxorio/fluxor-streams/pkg/future"
	"github.com/fluxorio/fluxor-streams/pkg/streams"
)

// A WriteStream feeding a ReadStream through the credit protocol, piped
// into a second WriteStream with a small queue
func TestPipe_ThroughBothAdapters(t *testing.T) {
	ctx := newTestContext(t)
	source := NewWriteStream[int](ctx)
	bridge := NewReadStream[int](ctx, WithBatchSize(3))
	sink := NewWriteStream[int](ctx, WithWriteQueueMaxSize(2))
	sub := &recordingSubscriber[int]{}

	if err := source.Subscribe(bridge); err != nil {
		t.Fatalf("Subscribe(bridge) error = %v", err)
	}
	subscribe(t, ctx, sink, sub)
	sub.subscription(t).Request(1000)

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := streams.PipeTo[int](waitCtx, bridge, sink)

	const total = 50
	var last *future.Future[future.Void]
	for i := 0; i < total; i++ {
		f, err := source.Write(i)
		if err != nil {
			t.Fatalf("Write(%d) error = %v", i, err)
		}
		last = f
	}
	if _, err := last.Await(waitCtx); err != nil {
		t.Fatalf("last write did not reach the bridge: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := result.Await(waitCtx); err != nil {
		t.Fatalf("pipe failed: %v", err)
	}
	flush(t, ctx)

	assertItems(t, "subscriber", sub.received(), seq(0, total))
	if got := sub.completions(); got != 1 {
		t.Errorf("OnComplete delivered %d times, want 1", got)
	}
}
