package plainblog

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one App. They live on a private
// registry so several Apps (as in tests) do not collide.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	PostsTotal          prometheus.Gauge
	RefreshesTotal      *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	QueriesTotal        *prometheus.CounterVec
	FeedCacheHits       prometheus.Counter
	FeedCacheMisses     prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plainblog_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plainblog_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		),
		PostsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "plainblog_posts",
				Help: "Number of posts in the current index snapshot.",
			},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plainblog_refreshes_total",
				Help: "Index refreshes by result (ok, error).",
			},
			[]string{"result"},
		),
		RefreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "plainblog_refresh_duration_seconds",
				Help:    "Time spent refreshing the index.",
				Buckets: prometheus.DefBuckets,
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plainblog_queries_total",
				Help: "Collection queries by kind (first, newer, older) and category use.",
			},
			[]string{"kind", "category"},
		),
		FeedCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plainblog_feed_cache_hits_total",
				Help: "Feed documents served from cache.",
			},
		),
		FeedCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "plainblog_feed_cache_misses_total",
				Help: "Feed documents rendered on demand.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PostsTotal,
		m.RefreshesTotal,
		m.RefreshDuration,
		m.QueriesTotal,
		m.FeedCacheHits,
		m.FeedCacheMisses,
	)
	return m
}

// Handler returns the scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{DisableCompression: true})
}
