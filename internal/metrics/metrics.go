// Package metrics exposes Prometheus instruments for the ingest path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/sensorbridge/internal/forwarder"
)

const namespace = "sensorbridge"

// Line results.
const (
	ResultAccepted  = "accepted"
	ResultRejected  = "rejected"
	ResultMalformed = "malformed"
)

// Metrics holds every instrument the bridge updates.
type Metrics struct {
	lines           *prometheus.CounterVec
	forwards        *prometheus.CounterVec
	forwardLatency  prometheus.Histogram
	activeConns     prometheus.Gauge
	connsTotal      prometheus.Counter
	ackFailures     prometheus.Counter
	publishFailures *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
// It panics on duplicate registration, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Input lines processed, by result.",
		}, []string{"result"}),
		forwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwards_total",
			Help:      "Upstream write attempts, by outcome.",
		}, []string{"outcome"}),
		forwardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forward_duration_seconds",
			Help:      "Wall time of one upstream write attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		activeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Client connections currently open.",
		}),
		connsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted since start.",
		}),
		ackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ack_failures_total",
			Help:      "Echo writes to clients that failed.",
		}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Live-feed publish errors, by publisher.",
		}, []string{"publisher"}),
	}

	reg.MustRegister(m.lines, m.forwards, m.forwardLatency, m.activeConns,
		m.connsTotal, m.ackFailures, m.publishFailures)

	// Pre-create label values so they export as zero.
	for _, r := range []string{ResultAccepted, ResultRejected, ResultMalformed} {
		m.lines.WithLabelValues(r)
	}
	for _, k := range []forwarder.Kind{forwarder.Delivered, forwarder.Rejected, forwarder.TransportFailure} {
		m.forwards.WithLabelValues(k.String())
	}

	return m
}

// Line counts one processed input line.
func (m *Metrics) Line(result string) {
	m.lines.WithLabelValues(result).Inc()
}

// Forward records one forward attempt.
func (m *Metrics) Forward(o forwarder.Outcome) {
	m.forwards.WithLabelValues(o.Kind.String()).Inc()
	m.forwardLatency.Observe(o.Duration.Seconds())
}

// ConnectionOpened increments the open connection gauge.
func (m *Metrics) ConnectionOpened() {
	m.connsTotal.Inc()
	m.activeConns.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (m *Metrics) ConnectionClosed() {
	m.activeConns.Dec()
}

// AckFailed counts a failed echo write.
func (m *Metrics) AckFailed() {
	m.ackFailures.Inc()
}

// PublishFailed counts a live-feed publish error.
func (m *Metrics) PublishFailed(publisher string) {
	m.publishFailures.WithLabelValues(publisher).Inc()
}
