// Package metrics exposes prometheus counters for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vocabot"

// Metrics groups the bot's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	updatesReceived     prometheus.Counter
	messagesSent        *prometheus.CounterVec
	acquisitions        *prometheus.CounterVec
	acquisitionAttempts *prometheus.CounterVec
	generatorLatency    prometheus.Histogram
	broadcasts          *prometheus.CounterVec
	sessions            prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		updatesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_received_total",
			Help:      "Inbound platform updates processed by the poller.",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages by result.",
		}, []string{"result"}),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Vocabulary acquisitions by final result.",
		}, []string{"result"}),
		acquisitionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_attempts_total",
			Help:      "Individual generative API attempts by outcome.",
		}, []string{"outcome"}),
		generatorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_request_seconds",
			Help:      "Latency of generative API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Daily invitation broadcasts by result.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Known user sessions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.updatesReceived,
			m.messagesSent,
			m.acquisitions,
			m.acquisitionAttempts,
			m.generatorLatency,
			m.broadcasts,
			m.sessions,
		)
	}
	return m
}

// UpdateReceived counts one inbound update.
func (m *Metrics) UpdateReceived() {
	if m == nil {
		return
	}
	m.updatesReceived.Inc()
}

// MessageSent counts one outbound send.
func (m *Metrics) MessageSent(err error) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(result(err)).Inc()
}

// Acquisition counts a finished acquisition ("ok", "network" or "exhausted").
func (m *Metrics) Acquisition(outcome string) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(outcome).Inc()
}

// AcquisitionAttempt counts one generative API attempt.
func (m *Metrics) AcquisitionAttempt(outcome string) {
	if m == nil {
		return
	}
	m.acquisitionAttempts.WithLabelValues(outcome).Inc()
}

// ObserveGenerator records the latency of one generative API request.
func (m *Metrics) ObserveGenerator(seconds float64) {
	if m == nil {
		return
	}
	m.generatorLatency.Observe(seconds)
}

// Broadcast counts one broadcast run.
func (m *Metrics) Broadcast(err error) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(result(err)).Inc()
}

// SetSessions records the number of known sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
