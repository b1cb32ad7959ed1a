package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Call metrics
	activeCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "receptionist_active_calls",
		Help: "Number of active phone calls",
	})

	totalCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receptionist_calls_total",
		Help: "Total number of calls processed",
	})

	callDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "receptionist_call_duration_seconds",
		Help:    "Duration of phone calls in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_transfers_total",
		Help: "Total number of blind transfers attempted",
	}, []string{"outcome"}) // outcome: "bridged", "ring_timeout", "originate_failed"

	collectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receptionist_message_collections_total",
		Help: "Total number of calls that fell into message collection",
	})

	// STT metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"status"})

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "receptionist_stt_latency_seconds",
		Help:    "STT processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// TTS metrics
	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_tts_requests_total",
		Help: "Total number of TTS requests",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "receptionist_tts_latency_seconds",
		Help:    "TTS processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	ttsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_tts_cache_total",
		Help: "TTS cache lookups",
	}, []string{"result"}) // result: "hit", "miss"

	// Classification / collection (chat) metrics
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_chat_requests_total",
		Help: "Total number of chat-completion requests",
	}, []string{"purpose", "status"}) // purpose: "classify", "collect"

	chatLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "receptionist_chat_latency_seconds",
		Help:    "Chat-completion latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Webhook metrics
	webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_webhook_requests_total",
		Help: "Total number of outbound webhook notifications",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "receptionist_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receptionist_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// Metrics tracks per-call instrumentation, mirroring the teacher's
// per-session tracker: a small mutable struct handed to one call for its
// entire lifetime.
type Metrics struct {
	channelID     string
	startTime     time.Time
	sttStartTime  time.Time
	ttsStartTime  time.Time
	chatStartTime time.Time
	mu            sync.Mutex
}

// NewCallMetrics creates a new metrics tracker for a call.
func NewCallMetrics(channelID string) *Metrics {
	return &Metrics{
		channelID: channelID,
		startTime: time.Now(),
	}
}

// RecordCallStart records the start of a call.
func (m *Metrics) RecordCallStart() {
	activeCalls.Inc()
	totalCalls.Inc()
}

// RecordCallEnd records the end of a call.
func (m *Metrics) RecordCallEnd() {
	activeCalls.Dec()
	duration := time.Since(m.startTime).Seconds()
	callDuration.Observe(duration)
}

// RecordTransfer records the outcome of a blind-transfer attempt.
func RecordTransfer(outcome string) {
	transfersTotal.WithLabelValues(outcome).Inc()
}

// RecordCollectionStarted records a fallback into message collection.
func RecordCollectionStarted() {
	collectionsTotal.Inc()
}

// RecordSTTStart records the start of STT processing.
func (m *Metrics) RecordSTTStart() {
	m.mu.Lock()
	m.sttStartTime = time.Now()
	m.mu.Unlock()
}

// RecordSTTEnd records the end of STT processing.
func (m *Metrics) RecordSTTEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sttStartTime.IsZero() {
		sttLatency.Observe(time.Since(m.sttStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	sttRequests.WithLabelValues(status).Inc()
}

// RecordTTSStart records the start of TTS processing.
func (m *Metrics) RecordTTSStart() {
	m.mu.Lock()
	m.ttsStartTime = time.Now()
	m.mu.Unlock()
}

// RecordTTSEnd records the end of TTS processing.
func (m *Metrics) RecordTTSEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ttsStartTime.IsZero() {
		ttsLatency.Observe(time.Since(m.ttsStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	ttsRequests.WithLabelValues(status).Inc()
}

// RecordTTSCache records a cache hit or miss for a synthesis request.
func RecordTTSCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ttsCacheLookups.WithLabelValues(result).Inc()
}

// RecordChatStart records the start of a chat-completion call.
func (m *Metrics) RecordChatStart() {
	m.mu.Lock()
	m.chatStartTime = time.Now()
	m.mu.Unlock()
}

// RecordChatEnd records the end of a chat-completion call for the given
// purpose ("classify" or "collect").
func (m *Metrics) RecordChatEnd(purpose string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.chatStartTime.IsZero() {
		chatLatency.Observe(time.Since(m.chatStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	chatRequests.WithLabelValues(purpose, status).Inc()
}

// RecordWebhook records the outcome of a webhook notification attempt.
func RecordWebhook(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	webhookRequests.WithLabelValues(status).Inc()
}

// RecordError records an error.
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates the circuit breaker state metric.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments the circuit breaker failure counter.
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
