// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RepliesTotal counts chat replies by topic and channel.
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_replies_total",
			Help: "Total chat replies by topic",
		},
		[]string{"channel", "topic"},
	)

	// AssistTotal counts LLM topic assist calls by outcome.
	AssistTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_llm_assist_total",
			Help: "LLM topic assist calls by outcome",
		},
		[]string{"outcome"},
	)

	// AssistDuration tracks LLM topic assist latency.
	AssistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_llm_assist_duration_seconds",
			Help:    "LLM topic assist latency",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10},
		},
	)

	// SessionsTotal tracks chat sessions started.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sessions_total",
			Help: "Total chat sessions started",
		},
		[]string{"channel"},
	)

	// LeadsTotal tracks captured leads.
	LeadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_leads_total",
			Help: "Total leads captured",
		},
		[]string{"source"},
	)

	// EventsPublishFailures counts transcript events that could not be published.
	EventsPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_events_publish_failures_total",
			Help: "Transcript events that failed to publish",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordReply records one reply sent to a user.
func RecordReply(channel, topic string) {
	RepliesTotal.WithLabelValues(channel, topic).Inc()
}

// RecordAssist records one LLM topic assist call. Outcome is "matched",
// "fallback" or "error".
func RecordAssist(outcome string, duration float64) {
	AssistTotal.WithLabelValues(outcome).Inc()
	AssistDuration.Observe(duration)
}

func RecordSession(channel string) {
	SessionsTotal.WithLabelValues(channel).Inc()
}

func RecordLead(source string) {
	LeadsTotal.WithLabelValues(source).Inc()
}

func RecordPublishFailure() {
	EventsPublishFailures.Inc()
}
