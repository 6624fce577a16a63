package monitoring

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "shareplaces"

// Metrics owns the Prometheus collectors of the API and the plain counters
// used by the text reports. All methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpActive   prometheus.Gauge

	uploads        *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	uploadDuration prometheus.Histogram

	placeWrites *prometheus.CounterVec

	activeHTTPRequests atomic.Int64
	totalHTTPRequests  atomic.Uint64

	uploadRequestsTotal       atomic.Uint64
	uploadRequestsFailed      atomic.Uint64
	uploadBytesTotal          atomic.Int64
	uploadDurationMicrosTotal atomic.Uint64
}

// NewMetrics registers every collector on reg. A nil reg gets a fresh
// registry, which keeps tests isolated.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "HTTP requests currently being served",
		}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "uploads",
			Name:      "total",
			Help:      "Image uploads by outcome and failure reason",
		}, []string{"outcome", "reason"}),
		uploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "uploads",
			Name:      "bytes_total",
			Help:      "Bytes written for accepted image uploads",
		}),
		uploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "uploads",
			Name:      "duration_seconds",
			Help:      "Time spent receiving and storing an image",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		placeWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "places",
			Name:      "writes_total",
			Help:      "Place write operations by operation and outcome",
		}, []string{"operation", "outcome"}),
	}
}

// Handler serves the Prometheus exposition format for the owned registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestMetricsMiddleware counts requests and observes their latency by
// matched route, so path parameters do not explode label cardinality.
func (m *Metrics) RequestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		m.activeHTTPRequests.Add(1)
		m.totalHTTPRequests.Add(1)
		m.httpActive.Inc()
		defer func() {
			m.activeHTTPRequests.Add(-1)
			m.httpActive.Dec()
		}()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(startedAt).Seconds())
	}
}

func (m *Metrics) httpStats() (active int64, total uint64) {
	return m.activeHTTPRequests.Load(), m.totalHTTPRequests.Load()
}
