// Package metrics provides observability for the certificate module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certificate module.
type Metrics struct {
	// Certificates created since process start.
	Created prometheus.Counter

	// Status transitions applied by recomputation, by old and new status.
	StatusTransitions *prometheus.CounterVec

	// Inspections flipped pending->failed by the scheduler, by slot.
	InspectionsFailed *prometheus.CounterVec

	// Public search latency.
	SearchLatency prometheus.Histogram

	// Batch sweep duration and touched-certificate count.
	SweepLatency prometheus.Histogram
	SweepUpdated prometheus.Counter
}

// New creates a Metrics instance with all certificate module metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certregistry_certificates_created_total",
			Help: "Total number of certificates created",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certregistry_status_transitions_total",
			Help: "Status transitions applied by recomputation",
		}, []string{"from", "to"}),
		InspectionsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certregistry_inspections_failed_total",
			Help: "Inspections flipped from pending to failed by the scheduler",
		}, []string{"slot"}), // slot: "first", "second"
		SearchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certregistry_search_duration_seconds",
			Help:    "Duration of public certificate searches",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		SweepLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certregistry_sweep_duration_seconds",
			Help:    "Duration of full status refresh sweeps",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		SweepUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certregistry_sweep_updated_total",
			Help: "Certificates whose stored state changed during sweeps",
		}),
	}
}

// IncrementCreated records a new certificate.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.Created.Inc()
	}
}

// RecordTransition records a derived status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(from, to).Inc()
	}
}

// RecordInspectionFailed records a pending inspection flipped to failed.
func (m *Metrics) RecordInspectionFailed(slot string) {
	if m != nil {
		m.InspectionsFailed.WithLabelValues(slot).Inc()
	}
}

// ObserveSearchLatency records the duration of a public search.
func (m *Metrics) ObserveSearchLatency(d time.Duration) {
	if m != nil {
		m.SearchLatency.Observe(d.Seconds())
	}
}

// ObserveSweep records a completed sweep and how many records it touched.
func (m *Metrics) ObserveSweep(d time.Duration, updated int) {
	if m != nil {
		m.SweepLatency.Observe(d.Seconds())
		m.SweepUpdated.Add(float64(updated))
	}
}
