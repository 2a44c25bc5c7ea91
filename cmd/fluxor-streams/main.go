package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fluxorio/fluxor-streams/pkg/core"
	"github.com/fluxorio/fluxor-streams/pkg/fluxor"
	"github.com/fluxorio/fluxor-streams/pkg/future"
	"github.com/fluxorio/fluxor-streams/pkg/reactivestreams"
	"github.com/fluxorio/fluxor-streams/pkg/streams"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "YAML or JSON config file (optional)")
	envPrefix := flag.String("env-prefix", "FLUXOR_STREAMS", "prefix for environment overrides")
	items := flag.Int("items", 1000, "number of items to push through the bridge")
	demand := flag.Int64("demand", 8, "credit the final subscriber grants per request")
	metricsAddr := flag.String("metrics-addr", ":9090", "address serving /metrics when metrics are enabled")
	trace := flag.Bool("trace", false, "print pipe spans to stdout")
	flag.Parse()
	if *items < 1 || *demand < 1 {
		log.Fatalf("-items and -demand must be >= 1")
	}

	rt, err := fluxor.NewFromFile(*configPath, *envPrefix)
	if err != nil {
		log.Fatalf("Failed to start runtime: %v", err)
	}
	logger := rt.Logger()

	var pipeOpts []streams.PipeOption
	if *trace {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			log.Fatalf("Failed to create trace exporter: %v", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
		pipeOpts = append(pipeOpts, streams.WithTracerProvider(tp))
	}

	var srv *http.Server
	if rt.Registry() != nil && *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", rt.MetricsHandler())
		srv = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("metrics server: %v", err)
			}
		}()
		logger.Infof("metrics available on %s/metrics", *metricsAddr)
	}

	// source -> bridge -> pipe -> sink -> counting subscriber
	source := fluxor.NewWriteStream[int](rt, reactivestreams.WithName("source"))
	bridge := fluxor.NewReadStream[int](rt, reactivestreams.WithName("bridge"))
	sink := fluxor.NewWriteStream[int](rt, reactivestreams.WithName("sink"))

	var received, sum atomic.Int64
	var upstream reactivestreams.Subscription
	done := make(chan struct{})
	consumer := &reactivestreams.SubscriberFuncs[int]{
		Subscribe: func(s reactivestreams.Subscription) {
			upstream = s
			s.Request(*demand)
		},
		Next: func(item int) {
			sum.Add(int64(item))
			n := received.Add(1)
			if n == int64(*items) {
				close(done)
				return
			}
			if n%*demand == 0 {
				upstream.Request(*demand)
			}
		},
		Error: func(err error) {
			logger.Errorf("consumer failed: %v", err)
			close(done)
		},
	}
	if err := sink.Subscribe(consumer); err != nil {
		log.Fatalf("Failed to subscribe consumer: %v", err)
	}
	if err := source.Subscribe(bridge); err != nil {
		log.Fatalf("Failed to subscribe bridge: %v", err)
	}

	// The sink is ended by hand once the consumer has everything; ending it
	// from the pipe would discard items the consumer has not requested yet.
	pipeOpts = append(pipeOpts, streams.WithEndOnComplete(false))
	pipe := streams.NewPipe[int](bridge, sink, pipeOpts...)
	pipe.To(context.Background())
	go produce(source, *items, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-done:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if n, err := pipe.Count().Await(ctx); err != nil {
			logger.Errorf("pipe failed: %v", err)
		} else {
			logger.Debugf("pipe moved %d items", n)
		}
		cancel()
		_ = sink.End()
		logger.Infof("delivered %d items, sum %d", received.Load(), sum.Load())
	case s := <-sig:
		logger.Infof("received %s, stopping", s)
	}

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(ctx)
		cancel()
	}
	if err := rt.Shutdown(context.Background()); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// produce writes n items, waiting on the newest item whenever the queue is
// full, then ends the stream once everything has been handed out.
func produce(source *reactivestreams.WriteStream[int], n int, logger core.Logger) {
	var last *future.Future[future.Void]
	for i := 0; i < n; i++ {
		f, err := source.Write(i)
		if err != nil {
			logger.Errorf("write %d: %v", i, err)
			return
		}
		last = f
		if full, _ := source.WriteQueueFull(); full {
			if _, err := f.Await(context.Background()); err != nil {
				logger.Errorf("write %d: %v", i, err)
				return
			}
		}
	}
	if last != nil {
		if _, err := last.Await(context.Background()); err != nil {
			logger.Errorf("last write: %v", err)
		}
	}
	_ = source.End()
}
