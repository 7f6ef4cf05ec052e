package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the VeinLine collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Delivery outcomes by channel, status and reason
	NotificationOutcome *prometheus.CounterVec

	// SOS lifecycle events by type ("created", "matched", "cancelled", ...)
	SOSEvents *prometheus.CounterVec

	MatchDuration prometheus.Histogram
	// Donors returned per match
	MatchedDonors prometheus.Histogram

	// Compatibility lookups served from the built-in table
	CompatFallback prometheus.Counter

	// Inbound SMS replies by result ("accepted", "invalid_format", "invalid_token", ...)
	InboundSMS *prometheus.CounterVec

	// Events handled by notify-worker by type and result
	WorkerEvents *prometheus.CounterVec
}

// New registers every collector with reg. Pass prometheus.DefaultRegisterer in binaries
// and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		NotificationOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veinline_notification_outcomes_total",
			Help: "Notification delivery outcomes by channel, status and reason",
		}, []string{"channel", "status", "reason"}),

		SOSEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veinline_sos_events_total",
			Help: "SOS lifecycle events by type",
		}, []string{"type"}),

		MatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "veinline_match_duration_seconds",
			Help:    "Duration of donor matching including response creation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		MatchedDonors: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "veinline_matched_donors",
			Help:    "Number of donors matched per trigger",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),

		CompatFallback: f.NewCounter(prometheus.CounterOpts{
			Name: "veinline_compat_fallback_total",
			Help: "Compatibility lookups answered from the built-in table",
		}),

		InboundSMS: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veinline_inbound_sms_total",
			Help: "Inbound SMS replies by result",
		}, []string{"result"}),

		WorkerEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "veinline_worker_events_total",
			Help: "Events handled by notify-worker by type and result",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) IncNotification(channel, status, reason string) {
	if m != nil {
		m.NotificationOutcome.WithLabelValues(channel, status, reason).Inc()
	}
}

func (m *Metrics) IncSOSEvent(typ string) {
	if m != nil {
		m.SOSEvents.WithLabelValues(typ).Inc()
	}
}

func (m *Metrics) ObserveMatch(d time.Duration, donors int) {
	if m != nil {
		m.MatchDuration.Observe(d.Seconds())
		m.MatchedDonors.Observe(float64(donors))
	}
}

func (m *Metrics) IncCompatFallback() {
	if m != nil {
		m.CompatFallback.Inc()
	}
}

func (m *Metrics) IncInboundSMS(result string) {
	if m != nil {
		m.InboundSMS.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncWorkerEvent(typ, result string) {
	if m != nil {
		m.WorkerEvents.WithLabelValues(typ, result).Inc()
	}
}
