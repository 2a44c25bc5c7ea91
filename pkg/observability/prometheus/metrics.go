package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxorio/fluxor-streams/pkg/reactivestreams"
)

// DefaultNamespace prefixes every metric name when none is given
const DefaultNamespace = "fluxor"

// StreamMetrics records reactivestreams events as Prometheus series.
// Every series is labeled by stream name.
type StreamMetrics struct {
	ItemsWrittenTotal      *prometheus.CounterVec
	ItemsDeliveredTotal    *prometheus.CounterVec
	Subscribers            *prometheus.GaugeVec
	SubscribersRemoved     *prometheus.CounterVec
	Pending                *prometheus.GaugeVec
	Violations             *prometheus.CounterVec
	UpstreamRequestedTotal *prometheus.CounterVec
}

var _ reactivestreams.Metrics = (*StreamMetrics)(nil)

// NewStreamMetrics registers the stream collectors with registerer.
// A nil registerer means prometheus.DefaultRegisterer.
func NewStreamMetrics(registerer prometheus.Registerer, namespace string) *StreamMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(registerer)

	return &StreamMetrics{
		ItemsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "items_written_total",
				Help:      "Total number of items accepted by a write stream",
			},
			[]string{"stream"},
		),
		ItemsDeliveredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "items_delivered_total",
				Help:      "Total number of OnNext dispatches (items times subscribers)",
			},
			[]string{"stream"},
		),
		Subscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "subscribers",
				Help:      "Number of active subscribers",
			},
			[]string{"stream"},
		),
		SubscribersRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "subscribers_removed_total",
				Help:      "Total number of subscriptions ended",
			},
			[]string{"stream", "reason"}, // reason: cancelled, failed, violation, closed
		),
		Pending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "pending_items",
				Help:      "Items queued or buffered and not yet delivered",
			},
			[]string{"stream"},
		),
		Violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "protocol_violations_total",
				Help:      "Total number of reactive-streams protocol violations",
			},
			[]string{"stream", "code"},
		),
		UpstreamRequestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "upstream_requested_total",
				Help:      "Total demand requested from upstream publishers",
			},
			[]string{"stream"},
		),
	}
}

func (m *StreamMetrics) ItemWritten(stream string) {
	m.ItemsWrittenTotal.WithLabelValues(stream).Inc()
}

func (m *StreamMetrics) ItemsDelivered(stream string, n int) {
	m.ItemsDeliveredTotal.WithLabelValues(stream).Add(float64(n))
}

func (m *StreamMetrics) SubscriberAdded(stream string) {
	m.Subscribers.WithLabelValues(stream).Inc()
}

func (m *StreamMetrics) SubscriberRemoved(stream string, reason string) {
	m.Subscribers.WithLabelValues(stream).Dec()
	m.SubscribersRemoved.WithLabelValues(stream, reason).Inc()
}

func (m *StreamMetrics) PendingItems(stream string, n int) {
	m.Pending.WithLabelValues(stream).Set(float64(n))
}

func (m *StreamMetrics) ProtocolViolation(stream string, code string) {
	m.Violations.WithLabelValues(stream, code).Inc()
}

func (m *StreamMetrics) UpstreamRequested(stream string, n int64) {
	m.UpstreamRequestedTotal.WithLabelValues(stream).Add(float64(n))
}

// Handler serves the metrics gathered by gatherer in the text exposition
// format. A nil gatherer means prometheus.DefaultGatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
