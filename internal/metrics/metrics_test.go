package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncNotification("sms", "failed", "provider_error")
	m.IncNotification("sms", "failed", "provider_error")
	m.IncNotification("email", "sent", "")
	m.IncSOSEvent("created")
	m.IncCompatFallback()
	m.IncInboundSMS("invalid_token")
	m.IncWorkerEvent("sos.response_recorded", "duplicate")
	m.ObserveMatch(30*time.Millisecond, 3)

	require.Equal(t, 2.0, testutil.ToFloat64(m.NotificationOutcome.WithLabelValues("sms", "failed", "provider_error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.NotificationOutcome.WithLabelValues("email", "sent", "")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SOSEvents.WithLabelValues("created")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CompatFallback))
	require.Equal(t, 1.0, testutil.ToFloat64(m.InboundSMS.WithLabelValues("invalid_token")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.WorkerEvents.WithLabelValues("sos.response_recorded", "duplicate")))
	require.Equal(t, 1, testutil.CollectAndCount(m.MatchDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.IncNotification("sms", "sent", "")
		m.IncSOSEvent("created")
		m.ObserveMatch(time.Second, 1)
		m.IncCompatFallback()
		m.IncInboundSMS("accepted")
		m.IncWorkerEvent("x", "ok")
	})
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}
