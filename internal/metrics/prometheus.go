package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription worker
type Metrics struct {
	// Worker loop metrics
	CyclesTotal    prometheus.Counter
	PendingBacklog prometheus.Gauge
	StoreErrors    prometheus.Counter

	// Recording processing metrics
	RecordingsProcessed prometheus.Counter
	RecordingsFailed    *prometheus.CounterVec
	RecordingsRequeued  prometheus.Counter
	ProcessingDuration  prometheus.Histogram
	AudioDuration       prometheus.Histogram
	TranscriptLength    prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Worker loop metrics
		CyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_poll_cycles_total",
			Help: "Total number of store poll cycles executed",
		}),
		PendingBacklog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "transcriber_pending_backlog",
			Help: "Number of pending recordings seen in the last poll cycle",
		}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_store_errors_total",
			Help: "Total number of store operation errors",
		}),

		// Recording processing metrics
		RecordingsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_recordings_processed_total",
			Help: "Total number of recordings transcribed successfully",
		}),
		RecordingsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_recordings_failed_total",
			Help: "Total number of recordings that failed processing",
		}, []string{"reason"}),
		RecordingsRequeued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_recordings_requeued_total",
			Help: "Total number of stale claims returned to the pending queue",
		}),
		ProcessingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_processing_duration_seconds",
			Help:    "End-to-end processing time per recording",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7 minutes
		}),
		AudioDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_audio_duration_seconds",
			Help:    "Duration of normalized recording audio",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),
		TranscriptLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_transcript_length_chars",
			Help:    "Length of produced transcripts in characters",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12), // 16 chars to ~32K
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transcriber_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordCycle increments the poll cycle counter and updates the backlog gauge
func (m *Metrics) RecordCycle(pending int) {
	m.CyclesTotal.Inc()
	m.PendingBacklog.Set(float64(pending))
}

// RecordStoreError increments the store errors counter
func (m *Metrics) RecordStoreError() {
	m.StoreErrors.Inc()
}

// RecordProcessed records a successfully transcribed recording
func (m *Metrics) RecordProcessed(processingSeconds, audioSeconds float64, transcriptChars int) {
	m.RecordingsProcessed.Inc()
	m.ProcessingDuration.Observe(processingSeconds)
	m.AudioDuration.Observe(audioSeconds)
	m.TranscriptLength.Observe(float64(transcriptChars))
}

// RecordFailed records a failed recording with its failure reason
func (m *Metrics) RecordFailed(reason string, processingSeconds float64) {
	m.RecordingsFailed.WithLabelValues(reason).Inc()
	m.ProcessingDuration.Observe(processingSeconds)
}

// RecordRequeued adds requeued stale claims to the counter
func (m *Metrics) RecordRequeued(count int) {
	if count > 0 {
		m.RecordingsRequeued.Add(float64(count))
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
