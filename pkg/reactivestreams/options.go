package reactivestreams

import (
	"github.com/fluxorio/fluxor-streams/pkg/core"
	"github.com/fluxorio/fluxor-streams/pkg/core/failfast"
)

const (
	// DefaultBatchSize is how many items a ReadStream requests from upstream at a time
	DefaultBatchSize = 4

	// DefaultWriteQueueMaxSize is the pending-item count at which a WriteStream reports full
	DefaultWriteQueueMaxSize = 32
)

// Option configures a ReadStream or WriteStream
type Option func(*options)

type options struct {
	name              string
	logger            core.Logger
	metrics           Metrics
	batchSize         int
	writeQueueMaxSize int
}

// WithName sets the stream name used as the metrics label (defaults to the stream kind)
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger overrides the context's logger
func WithLogger(logger core.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics installs a metrics sink
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBatchSize sets the ReadStream upstream request size
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithWriteQueueMaxSize sets the initial WriteStream capacity
func WithWriteQueueMaxSize(n int) Option {
	return func(o *options) { o.writeQueueMaxSize = n }
}

func newOptions(ctx core.Context, kind string, opts []Option) options {
	o := options{
		name:              kind,
		batchSize:         DefaultBatchSize,
		writeQueueMaxSize: DefaultWriteQueueMaxSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = ctx.Logger()
	}
	if o.metrics == nil {
		o.metrics = NopMetrics{}
	}
	failfast.Positive(int64(o.batchSize), "batch size")
	failfast.Positive(int64(o.writeQueueMaxSize), "write queue max size")
	return o
}
