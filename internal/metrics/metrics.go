// Package metrics holds the prometheus collectors of the sync engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Completion outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Metrics struct {
	completions      *prometheus.CounterVec
	completionTime   prometheus.Histogram
	inFlight         prometheus.Gauge
	rejectedSends    *prometheus.CounterVec
	persistWrites    *prometheus.CounterVec
	persistScheduled prometheus.Counter
	persistCoalesced prometheus.Counter
	transforms       prometheus.Counter
	sessions         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "completions_total",
			Help:      "Completion requests by outcome.",
		}, []string{"outcome"}),
		completionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chatsync",
			Name:      "completion_duration_seconds",
			Help:      "Time from request issue to settlement.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatsync",
			Name:      "completions_in_flight",
			Help:      "Outstanding completion requests across sessions.",
		}),
		rejectedSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "sends_rejected_total",
			Help:      "Sends ignored before any request was issued.",
		}, []string{"reason"}),
		persistWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "document_writes_total",
			Help:      "Document writes by outcome.",
		}, []string{"outcome"}),
		persistScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "document_writes_scheduled_total",
			Help:      "Writes scheduled by state changes.",
		}),
		persistCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "document_writes_superseded_total",
			Help:      "Scheduled writes replaced by a newer snapshot before being written.",
		}),
		transforms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chatsync",
			Name:      "state_transforms_total",
			Help:      "Transforms applied to chat state.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chatsync",
			Name:      "sessions_open",
			Help:      "Open sessions.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.completions, m.completionTime, m.inFlight, m.rejectedSends,
			m.persistWrites, m.persistScheduled, m.persistCoalesced,
			m.transforms, m.sessions,
		)
	}
	return m
}

func (m *Metrics) CompletionSettled(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(outcome).Inc()
	m.completionTime.Observe(seconds)
	m.inFlight.Dec()
}

func (m *Metrics) CompletionStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) SendRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedSends.WithLabelValues(reason).Inc()
}

func (m *Metrics) WriteScheduled(superseded bool) {
	if m == nil {
		return
	}
	m.persistScheduled.Inc()
	if superseded {
		m.persistCoalesced.Inc()
	}
}

func (m *Metrics) WriteDone(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.persistWrites.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	m.persistWrites.WithLabelValues(OutcomeSuccess).Inc()
}

func (m *Metrics) TransformApplied() {
	if m == nil {
		return
	}
	m.transforms.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
