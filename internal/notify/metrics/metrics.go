// Package metrics provides observability for the reminder sweep.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reminder sweep.
type Metrics struct {
	// Reminders delivered, by category and recipient kind.
	RemindersSent *prometheus.CounterVec

	// Reminders suppressed by the notification log.
	RemindersDeduplicated prometheus.Counter

	// Delivery failures, by category.
	SendFailures *prometheus.CounterVec

	// Full reminder sweep duration.
	SweepLatency prometheus.Histogram
}

// New creates a Metrics instance with all reminder metrics registered.
func New() *Metrics {
	return &Metrics{
		RemindersSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certregistry_reminders_sent_total",
			Help: "Reminder emails delivered",
		}, []string{"category", "recipient"}), // recipient: "admin", "client"
		RemindersDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certregistry_reminders_deduplicated_total",
			Help: "Reminders suppressed by the at-most-once-per-day log",
		}),
		SendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certregistry_reminder_send_failures_total",
			Help: "Reminder emails that failed to send",
		}, []string{"category"}),
		SweepLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certregistry_reminder_sweep_duration_seconds",
			Help:    "Duration of full reminder sweeps",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
	}
}

// RecordSent records a delivered reminder.
func (m *Metrics) RecordSent(category, recipient string) {
	if m != nil {
		m.RemindersSent.WithLabelValues(category, recipient).Inc()
	}
}

// RecordDeduplicated records a reminder suppressed by the log.
func (m *Metrics) RecordDeduplicated() {
	if m != nil {
		m.RemindersDeduplicated.Inc()
	}
}

// RecordFailure records a failed delivery.
func (m *Metrics) RecordFailure(category string) {
	if m != nil {
		m.SendFailures.WithLabelValues(category).Inc()
	}
}

// ObserveSweep records a completed reminder sweep.
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m != nil {
		m.SweepLatency.Observe(d.Seconds())
	}
}
