package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	messagesSentTotal    *prometheus.CounterVec
	uploadRejectedTotal  *prometheus.CounterVec
	uploadLatencySeconds prometheus.Histogram
	activitiesTotal      *prometheus.CounterVec
	historyLatencySecs   prometheus.Histogram
	typingEventsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converse_messages_sent_total",
			Help: "Messages sent by type and outcome.",
		}, []string{"type", "outcome"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converse_upload_rejected_total",
			Help: "Media uploads rejected before transport, by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "converse_upload_latency_seconds",
			Help:    "Latency distribution for media uploads.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		})

		activitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converse_activities_applied_total",
			Help: "Realtime activities applied, by type.",
		}, []string{"type"})

		historyLatencySecs = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "converse_history_latency_seconds",
			Help:    "Latency distribution for history page fetches.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		})

		typingEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "converse_typing_events_total",
			Help: "Outbound typing events, by state.",
		}, []string{"state"})

		prometheus.MustRegister(
			messagesSentTotal,
			uploadRejectedTotal,
			uploadLatencySeconds,
			activitiesTotal,
			historyLatencySecs,
			typingEventsTotal,
		)
	})
}

// MessagesSent exposes the send counter.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// UploadRejected exposes the upload rejection counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// ActivitiesApplied exposes the activity counter.
func ActivitiesApplied() *prometheus.CounterVec {
	RegisterMetrics()
	return activitiesTotal
}

// HistoryLatency exposes the pagination latency histogram.
func HistoryLatency() prometheus.Histogram {
	RegisterMetrics()
	return historyLatencySecs
}

// TypingEvents exposes the typing event counter.
func TypingEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return typingEventsTotal
}
