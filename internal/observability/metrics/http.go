package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

const (
	OutcomeAnswered       = "answered"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeError          = "error"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal        *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	llmDuration       *prometheus.HistogramVec
	groundingScore    *prometheus.HistogramVec
	usedChunks        *prometheus.HistogramVec
	tokensTotal       *prometheus.CounterVec
	costTotal         *prometheus.CounterVec
	corpusChunks      *prometheus.GaugeVec
	reloadTotal       *prometheus.CounterVec
	reloadDuration    *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ragqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragqa",
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total answered queries by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "rag",
			Name:      "retrieval_duration_seconds",
			Help:      "Embedding plus similarity search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	llmDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "rag",
			Name:      "llm_duration_seconds",
			Help:      "Answer generation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	groundingScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "rag",
			Name:      "grounding_score",
			Help:      "Distribution of answer grounding scores.",
			Buckets:   []float64{0, 0.2, 0.4, 0.5, 0.6, 0.7, 0.75, 0.8, 0.9, 1},
		},
		[]string{"service"},
	)
	usedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "rag",
			Name:      "used_chunks",
			Help:      "Distribution of chunks passing the similarity threshold per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragqa",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Approximate token usage by direction.",
		},
		[]string{"service", "direction"},
	)
	costTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragqa",
			Subsystem: "llm",
			Name:      "estimated_cost_usd_total",
			Help:      "Accumulated estimated LLM spend in USD.",
		},
		[]string{"service"},
	)
	corpusChunks := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ragqa",
			Subsystem: "corpus",
			Name:      "chunks",
			Help:      "Chunks in the live index snapshot.",
		},
		[]string{"service"},
	)
	reloadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragqa",
			Subsystem: "corpus",
			Name:      "reloads_total",
			Help:      "Total index reloads by status.",
		},
		[]string{"service", "status"},
	)
	reloadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragqa",
			Subsystem: "corpus",
			Name:      "reload_duration_seconds",
			Help:      "Index rebuild duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		retrievalDuration,
		llmDuration,
		groundingScore,
		usedChunks,
		tokensTotal,
		costTotal,
		corpusChunks,
		reloadTotal,
		reloadDuration,
	)

	return &HTTPServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		queryTotal:        queryTotal,
		retrievalDuration: retrievalDuration,
		llmDuration:       llmDuration,
		groundingScore:    groundingScore,
		usedChunks:        usedChunks,
		tokensTotal:       tokensTotal,
		costTotal:         costTotal,
		corpusChunks:      corpusChunks,
		reloadTotal:       reloadTotal,
		reloadDuration:    reloadDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{source}"
	default:
		return path
	}
}

// RecordQuery folds one finished query result into the RAG metric family.
func (m *HTTPServerMetrics) RecordQuery(service string, result *domain.QueryResult) {
	if result == nil {
		m.queryTotal.WithLabelValues(service, OutcomeError).Inc()
		return
	}

	m.retrievalDuration.WithLabelValues(service).Observe(result.Performance.Latency.RetrievalSec)
	m.usedChunks.WithLabelValues(service).Observe(float64(result.Retrieval.UsedChunks))

	if result.BelowThreshold() {
		m.queryTotal.WithLabelValues(service, OutcomeBelowThreshold).Inc()
		return
	}

	m.queryTotal.WithLabelValues(service, OutcomeAnswered).Inc()
	m.llmDuration.WithLabelValues(service).Observe(result.Performance.Latency.LLMSec)
	m.groundingScore.WithLabelValues(service).Observe(result.Metrics.GroundingScore)

	cost := result.Performance.Cost
	if cost.PromptTokens > 0 {
		m.tokensTotal.WithLabelValues(service, "in").Add(float64(cost.PromptTokens))
	}
	if cost.CompletionTokens > 0 {
		m.tokensTotal.WithLabelValues(service, "out").Add(float64(cost.CompletionTokens))
	}
	if cost.EstimatedCostUSD > 0 {
		m.costTotal.WithLabelValues(service).Add(cost.EstimatedCostUSD)
	}
}

func (m *HTTPServerMetrics) RecordQueryError(service string) {
	m.queryTotal.WithLabelValues(service, OutcomeError).Inc()
}

func (m *HTTPServerMetrics) RecordReload(service string, chunks int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.reloadTotal.WithLabelValues(service, status).Inc()
	m.reloadDuration.WithLabelValues(service).Observe(duration.Seconds())
	if err == nil {
		m.corpusChunks.WithLabelValues(service).Set(float64(chunks))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
