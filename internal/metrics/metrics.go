// Package metrics exposes Prometheus collectors for the crawl service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlRequestsTotal         *prometheus.CounterVec
	crawlDurationSeconds       *prometheus.HistogramVec
	extractionsTotal           *prometheus.CounterVec
	extractionDurationSeconds  *prometheus.HistogramVec
	uploadsTotal               *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesift_crawl_requests_total",
				Help: "Total number of crawl requests, labeled by content source and status.",
			},
			[]string{"content_source", "status"},
		)

		crawlDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagesift_crawl_duration_seconds",
				Help:    "Histogram of end-to-end crawl durations, labeled by content source.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"content_source"},
		)

		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesift_extractions_total",
				Help: "Total number of AI extractions, labeled by provider, mode and status.",
			},
			[]string{"provider", "mode", "status"},
		)

		extractionDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagesift_extraction_duration_seconds",
				Help:    "Histogram of AI extraction latencies, labeled by provider.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		)

		uploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagesift_uploads_total",
				Help: "Total number of artifact uploads, labeled by file type and status.",
			},
			[]string{"file_type", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl records one crawl request.
func ObserveCrawl(contentSource, status string, duration time.Duration) {
	crawlRequestsTotal.WithLabelValues(contentSource, status).Inc()
	crawlDurationSeconds.WithLabelValues(contentSource).Observe(duration.Seconds())
}

// ObserveExtraction records one AI extraction attempt.
func ObserveExtraction(provider, mode, status string, duration time.Duration) {
	extractionsTotal.WithLabelValues(provider, mode, status).Inc()
	extractionDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveUpload records one artifact upload attempt.
func ObserveUpload(fileType, status string) {
	uploadsTotal.WithLabelValues(fileType, status).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
