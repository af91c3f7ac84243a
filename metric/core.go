package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "semrcl"

// Wait results used as the "result" label of WaitsTotal.
const (
	WaitResultReady   = "ready"
	WaitResultTimeout = "timeout"
	WaitResultError   = "error"
)

// Metrics contains the library-level metrics. All Record methods are safe
// to call on a nil *Metrics, which disables recording.
type Metrics struct {
	// Wait set metrics
	WaitsTotal   *prometheus.CounterVec
	WaitDuration prometheus.Histogram

	// Entity metrics
	EntitiesActive    *prometheus.GaugeVec
	MessagesPublished *prometheus.CounterVec
	MessagesTaken     *prometheus.CounterVec
	MessagesLost      *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	// Transport metrics
	TransportConnected  prometheus.Gauge
	TransportReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		WaitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wait_set",
				Name:      "waits_total",
				Help:      "Total number of wait set waits by result",
			},
			[]string{"result"},
		),

		WaitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "wait_set",
				Name:      "wait_duration_seconds",
				Help:      "Time spent blocked in wait set waits",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),

		EntitiesActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "entities",
				Name:      "active",
				Help:      "Number of initialized entities by kind",
			},
			[]string{"kind"},
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "published_total",
				Help:      "Total number of messages published",
			},
			[]string{"topic"},
		),

		MessagesTaken: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "taken_total",
				Help:      "Total number of messages taken from subscriptions",
			},
			[]string{"topic"},
		),

		MessagesLost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "lost_total",
				Help:      "Total number of messages dropped before they were taken",
			},
			[]string{"topic"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of failed operations by return code",
			},
			[]string{"code"},
		),

		TransportConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "connected",
				Help:      "Transport connection status (0=disconnected, 1=connected)",
			},
		),

		TransportReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transport",
				Name:      "reconnects_total",
				Help:      "Total number of transport reconnections",
			},
		),
	}
}

// collectors returns every metric for registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.WaitsTotal,
		m.WaitDuration,
		m.EntitiesActive,
		m.MessagesPublished,
		m.MessagesTaken,
		m.MessagesLost,
		m.ErrorsTotal,
		m.TransportConnected,
		m.TransportReconnects,
	}
}

// RecordWait records the result and blocked duration of one wait
func (m *Metrics) RecordWait(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.WaitsTotal.WithLabelValues(result).Inc()
	m.WaitDuration.Observe(duration.Seconds())
}

// EntityCreated increments the active entity gauge
func (m *Metrics) EntityCreated(kind string) {
	if m == nil {
		return
	}
	m.EntitiesActive.WithLabelValues(kind).Inc()
}

// EntityDestroyed decrements the active entity gauge
func (m *Metrics) EntityDestroyed(kind string) {
	if m == nil {
		return
	}
	m.EntitiesActive.WithLabelValues(kind).Dec()
}

// RecordPublished increments the published message counter
func (m *Metrics) RecordPublished(topic string) {
	if m == nil {
		return
	}
	m.MessagesPublished.WithLabelValues(topic).Inc()
}

// RecordTaken increments the taken message counter
func (m *Metrics) RecordTaken(topic string) {
	if m == nil {
		return
	}
	m.MessagesTaken.WithLabelValues(topic).Inc()
}

// RecordLost adds n dropped messages
func (m *Metrics) RecordLost(topic string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MessagesLost.WithLabelValues(topic).Add(float64(n))
}

// RecordError increments the error counter for a return code name
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(code).Inc()
}

// RecordTransportStatus updates the transport connection status
func (m *Metrics) RecordTransportStatus(connected bool) {
	if m == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	m.TransportConnected.Set(value)
}

// RecordTransportReconnect increments the reconnection counter
func (m *Metrics) RecordTransportReconnect() {
	if m == nil {
		return
	}
	m.TransportReconnects.Inc()
}
