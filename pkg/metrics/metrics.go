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
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
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

	// ChatTurnsTotal tracks dialogue turns by resulting step and substep.
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns by resulting state",
		},
		[]string{"step", "substep", "accepted"},
	)

	// RecommendationsTotal tracks recommendation queries by outcome.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total recommendation queries",
		},
		[]string{"outcome"},
	)

	// RecommendationResults tracks how many activities a query returns.
	RecommendationResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_results",
			Help:    "Number of activities returned per recommendation query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// WeatherLookupDuration tracks weather provider latency.
	WeatherLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_lookup_duration_seconds",
			Help:    "Weather provider call duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 3, 5},
		},
		[]string{"endpoint", "result"},
	)

	// CompletionsTotal tracks completion marking attempts.
	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completions_total",
			Help: "Completion records by kind and result",
		},
		[]string{"kind", "result"},
	)

	// SessionsActive tracks sessions held by the in-memory store.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of chat sessions held in memory",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordChatTurn records the state a turn ended in.
func RecordChatTurn(step, substep string, accepted bool) {
	acc := "true"
	if !accepted {
		acc = "false"
	}
	ChatTurnsTotal.WithLabelValues(step, substep, acc).Inc()
}

// RecordRecommendation records one recommendation query.
func RecordRecommendation(outcome string, results int) {
	RecommendationsTotal.WithLabelValues(outcome).Inc()
	RecommendationResults.Observe(float64(results))
}

// RecordWeatherLookup records one weather provider call.
func RecordWeatherLookup(endpoint, result string, duration float64) {
	WeatherLookupDuration.WithLabelValues(endpoint, result).Observe(duration)
}

// RecordCompletion records a completion attempt.
func RecordCompletion(kind, result string) {
	CompletionsTotal.WithLabelValues(kind, result).Inc()
}
