// Package fluxor wires configuration, logging, metrics and an execution
// lane into a Runtime that builds reactive stream adapters.
package fluxor

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fluxorio/fluxor-streams/pkg/config"
	"github.com/fluxorio/fluxor-streams/pkg/core"
	fluxorprom "github.com/fluxorio/fluxor-streams/pkg/observability/prometheus"
	"github.com/fluxorio/fluxor-streams/pkg/reactivestreams"
)

// Runtime owns one execution lane and the ambient services its streams share
type Runtime struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg      config.StreamsConfig
	logger   core.Logger
	lane     core.Context
	registry *prometheus.Registry
	metrics  reactivestreams.Metrics

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and starts a Runtime. Metrics go to a private
// registry when cfg.Metrics.Enabled is set.
func New(cfg config.StreamsConfig) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := core.NewLogger(core.LoggerConfig{
		Level:    cfg.Logging.Level,
		Encoding: cfg.Logging.Encoding,
	})
	if err != nil {
		return nil, err
	}
	return newRuntime(cfg, logger), nil
}

// NewFromFile loads the config at path (YAML or JSON, empty for defaults),
// applies env overrides under envPrefix and starts a Runtime.
func NewFromFile(path, envPrefix string) (*Runtime, error) {
	cfg, err := config.LoadStreamsConfig(path, envPrefix)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

func newRuntime(cfg config.StreamsConfig, logger core.Logger) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Runtime{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		logger:  logger,
		metrics: reactivestreams.NopMetrics{},
	}
	r.lane = core.NewContext(ctx, core.ContextOptions{
		Name:   cfg.Context.Name,
		Logger: logger,
	})

	if cfg.Metrics.Enabled {
		r.registry = prometheus.NewRegistry()
		r.metrics = fluxorprom.NewStreamMetrics(r.registry, cfg.Metrics.Namespace)
	}

	logger.Infof("runtime started: context=%s metrics=%t", r.lane.ID(), cfg.Metrics.Enabled)
	return r
}

// Context returns the execution lane shared by streams built from r
func (r *Runtime) Context() core.Context { return r.lane }

// Logger returns the runtime logger
func (r *Runtime) Logger() core.Logger { return r.logger }

// Config returns the configuration the runtime was built from
func (r *Runtime) Config() config.StreamsConfig { return r.cfg }

// Metrics returns the sink handed to every stream
func (r *Runtime) Metrics() reactivestreams.Metrics { return r.metrics }

// Registry returns the Prometheus registry, or nil when metrics are disabled
func (r *Runtime) Registry() *prometheus.Registry { return r.registry }

// MetricsHandler serves the runtime registry. It responds 404 when
// metrics are disabled.
func (r *Runtime) MetricsHandler() http.Handler {
	if r.registry == nil {
		return http.NotFoundHandler()
	}
	return fluxorprom.Handler(r.registry)
}

// Start blocks until SIGINT/SIGTERM or ctx is done, then shuts down.
func (r *Runtime) Start(ctx context.Context) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		r.logger.Infof("received %s, shutting down", s)
	case <-ctx.Done():
	case <-r.ctx.Done():
	}
	return r.Shutdown(context.Background())
}

// Shutdown closes the lane, waiting for queued callbacks up to the
// configured shutdown timeout or until ctx is done. Only the first call
// does any work; later calls return its result.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, r.cfg.Context.ShutdownTimeout())
		defer cancel()

		r.closeErr = r.lane.Close(ctx)
		r.cancel()
		if r.closeErr != nil {
			r.logger.Warnf("runtime shutdown: %v", r.closeErr)
		} else {
			r.logger.Info("runtime stopped")
		}
	})
	return r.closeErr
}

// NewReadStream builds a ReadStream on r's lane with the configured batch
// size and metrics. opts are applied after the defaults.
func NewReadStream[T any](r *Runtime, opts ...reactivestreams.Option) *reactivestreams.ReadStream[T] {
	return reactivestreams.NewReadStream[T](r.lane, r.streamOptions(opts)...)
}

// NewWriteStream builds a WriteStream on r's lane with the configured
// write queue size and metrics. opts are applied after the defaults.
func NewWriteStream[T any](r *Runtime, opts ...reactivestreams.Option) *reactivestreams.WriteStream[T] {
	return reactivestreams.NewWriteStream[T](r.lane, r.streamOptions(opts)...)
}

func (r *Runtime) streamOptions(opts []reactivestreams.Option) []reactivestreams.Option {
	base := []reactivestreams.Option{
		reactivestreams.WithLogger(r.lane.Logger()),
		reactivestreams.WithMetrics(r.metrics),
		reactivestreams.WithBatchSize(r.cfg.ReadStream.BatchSize),
		reactivestreams.WithWriteQueueMaxSize(r.cfg.WriteStream.WriteQueueMaxSize),
	}
	return append(base, opts...)
}
