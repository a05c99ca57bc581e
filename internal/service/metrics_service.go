package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes reported by ObserveResolution.
const (
	OutcomeSuccess     = "success"
	OutcomeNotFound    = "not_found"
	OutcomeRevoked     = "revoked"
	OutcomeExpired     = "expired"
	OutcomeExhausted   = "exhausted"
	OutcomeBadPassword = "bad_password"
	OutcomeRateLimited = "rate_limited"
	OutcomeUnavailable = "unavailable"
)

// MetricsService encapsulates Prometheus instrumentation for the link service.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	linksCreated    *prometheus.CounterVec
	linksRevoked    prometheus.Counter
	resolutions     *prometheus.CounterVec
	hashDuration    *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	linksCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "share_links_created_total",
		Help: "Total share links issued",
	}, []string{"resource_type", "one_time_use"})

	linksRevoked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "share_links_revoked_total",
		Help: "Total share link revocations",
	})

	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "share_link_resolutions_total",
		Help: "Share link redemption attempts by outcome",
	}, []string{"outcome"})

	hashDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "credential_hash_seconds",
		Help:    "Time spent hashing or verifying link passwords",
		Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, linksCreated, linksRevoked, resolutions, hashDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		linksCreated:    linksCreated,
		linksRevoked:    linksRevoked,
		resolutions:     resolutions,
		hashDuration:    hashDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveLinkCreated counts an issued link.
func (m *MetricsService) ObserveLinkCreated(resourceType string, oneTimeUse bool) {
	if m == nil {
		return
	}
	m.linksCreated.WithLabelValues(resourceType, fmt.Sprintf("%t", oneTimeUse)).Inc()
}

// ObserveLinkRevoked counts a revocation.
func (m *MetricsService) ObserveLinkRevoked() {
	if m == nil {
		return
	}
	m.linksRevoked.Inc()
}

// ObserveResolution counts a redemption attempt outcome.
func (m *MetricsService) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// ObserveHash records credential hashing time for op "hash" or "verify".
func (m *MetricsService) ObserveHash(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.hashDuration.WithLabelValues(op).Observe(duration.Seconds())
}
