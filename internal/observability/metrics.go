package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed metrics
	feedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_gateway_feed_fetches_total",
		Help: "Total number of feed fetches through the relay",
	}, []string{"source", "status"})

	feedLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "news_gateway_feed_fetch_latency_seconds",
		Help:    "Feed fetch and parse latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	newsItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "news_gateway_news_items",
		Help: "Number of news items in the latest aggregation",
	})

	// Summarization metrics
	summaries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_gateway_summaries_total",
		Help: "Total number of summaries produced, by mode",
	}, []string{"mode"}) // mode: "remote", "fallback", "cache", "passthrough"

	summarizationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "news_gateway_summarization_latency_seconds",
		Help:    "Remote summarization latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Audio metrics
	audioGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_gateway_audio_generations_total",
		Help: "Total number of audio generation requests",
	}, []string{"status"}) // status: "completed", "timeout", "error"

	audioGenerationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "news_gateway_audio_generation_latency_seconds",
		Help:    "Audio generation latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
	})

	audioBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "news_gateway_audio_bytes_total",
		Help: "Total WAV bytes produced",
	})

	// Playback metrics
	playbackTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_gateway_playback_transitions_total",
		Help: "Playback controller state transitions",
	}, []string{"state"})

	activePlaybacks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "news_gateway_active_playbacks",
		Help: "Number of handles currently playing",
	})

	alerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_gateway_alerts_total",
		Help: "User-facing alerts raised",
	}, []string{"kind"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "news_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "news_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// RecordFeedFetch records the outcome of one feed fetch
func RecordFeedFetch(source string, start time.Time, success bool) {
	feedLatency.Observe(time.Since(start).Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	feedFetches.WithLabelValues(source, status).Inc()
}

// SetNewsItems records the size of the latest aggregation
func SetNewsItems(n int) {
	newsItems.Set(float64(n))
}

// RecordSummary records how a summary was produced
func RecordSummary(mode string) {
	summaries.WithLabelValues(mode).Inc()
}

// ObserveSummarizationLatency records a remote summarization round trip
func ObserveSummarizationLatency(start time.Time) {
	summarizationLatency.Observe(time.Since(start).Seconds())
}

// RecordAudioGeneration records a finished audio generation
func RecordAudioGeneration(status string, start time.Time, wavBytes int) {
	audioGenerationLatency.Observe(time.Since(start).Seconds())
	audioGenerations.WithLabelValues(status).Inc()
	if wavBytes > 0 {
		audioBytes.Add(float64(wavBytes))
	}
}

// RecordPlaybackTransition records a playback controller entering a state
func RecordPlaybackTransition(state string) {
	playbackTransitions.WithLabelValues(state).Inc()
}

// AddActivePlaybacks adjusts the playing handle gauge
func AddActivePlaybacks(delta int) {
	activePlaybacks.Add(float64(delta))
}

// RecordAlert records a user-facing alert
func RecordAlert(kind string) {
	alerts.WithLabelValues(kind).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
