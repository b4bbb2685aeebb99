package event

import (
	"github.com/prometheus/client_golang/prometheus"
)

const defaultMetricsNamespace = "sqlevent"

// Transmission outcome labels.
const (
	resultQueued = "queued"
	resultSent   = "sent"
	resultFailed = "failed"

	dropReasonQueueFull   = "queue_full"
	dropReasonRateLimited = "rate_limited"
	dropReasonClosed      = "closed"
)

// transmissionMetrics holds the Prometheus collectors of a Transmission.
type transmissionMetrics struct {
	events  *prometheus.CounterVec
	dropped *prometheus.CounterVec
	retries prometheus.Counter
	queue   prometheus.GaugeFunc
}

func newTransmissionMetrics(namespace string, queueLen func() float64) *transmissionMetrics {
	return &transmissionMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transmission",
			Name:      "events_total",
			Help:      "Events handled by the transmission, by result.",
		}, []string{"result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transmission",
			Name:      "dropped_total",
			Help:      "Events dropped before delivery, by reason.",
		}, []string{"reason"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transmission",
			Name:      "retries_total",
			Help:      "Delivery attempts retried after a failure.",
		}),
		queue: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transmission",
			Name:      "queue_length",
			Help:      "Events waiting for delivery.",
		}, queueLen),
	}
}

func (m *transmissionMetrics) record(result string) {
	m.events.WithLabelValues(result).Inc()
}

func (m *transmissionMetrics) drop(reason string) {
	m.events.WithLabelValues("dropped").Inc()
	m.dropped.WithLabelValues(reason).Inc()
}

// Collectors returns the transmission's Prometheus collectors for registration.
//
// Example:
//
//	prometheus.MustRegister(tx.Collectors()...)
func (t *Transmission) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		t.metrics.events,
		t.metrics.dropped,
		t.metrics.retries,
		t.metrics.queue,
	}
}
