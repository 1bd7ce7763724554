package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	activityEntries *prometheus.CounterVec
	itemVoids       prometheus.Counter
	voidConflicts   prometheus.Counter
}

var (
	newMetricsOnce sync.Once
	sharedMetrics  *Metrics
)

// New registers the domain instruments on the default registry.
func New() *Metrics {
	newMetricsOnce.Do(func() {
		m := &Metrics{
			activityEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bizhub_activity_entries_total",
				Help: "Activity ledger entries recorded, by action.",
			}, []string{"action"}),
			itemVoids: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "bizhub_item_voids_total",
				Help: "Invoice line items voided.",
			}),
			voidConflicts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "bizhub_item_void_conflicts_total",
				Help: "Void attempts rejected because the item was already voided.",
			}),
		}
		prometheus.MustRegister(m.activityEntries, m.itemVoids, m.voidConflicts)
		sharedMetrics = m
	})
	return sharedMetrics
}

// RecordActivityEntry counts one appended ledger entry.
func (m *Metrics) RecordActivityEntry(action string) {
	if m == nil {
		return
	}
	action = strings.TrimSpace(action)
	if action == "" {
		action = "unknown"
	}
	m.activityEntries.WithLabelValues(action).Inc()
}

// RecordItemVoid counts one successful void transition.
func (m *Metrics) RecordItemVoid() {
	if m == nil {
		return
	}
	m.itemVoids.Inc()
}

// RecordVoidConflict counts one rejected double-void attempt.
func (m *Metrics) RecordVoidConflict() {
	if m == nil {
		return
	}
	m.voidConflicts.Inc()
}

// HTTPMetrics instruments the gin engine.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	newHTTPOnce sync.Once
	sharedHTTP  *HTTPMetrics
)

// NewHTTPMetrics registers the HTTP instruments on the default registry.
func NewHTTPMetrics() *HTTPMetrics {
	newHTTPOnce.Do(func() {
		m := &HTTPMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bizhub_http_requests_total",
				Help: "HTTP requests served, by method, route and status.",
			}, []string{"method", "route", "status"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "bizhub_http_request_duration_seconds",
				Help:    "HTTP request latency, by method and route.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "route"}),
		}
		prometheus.MustRegister(m.requests, m.duration)
		sharedHTTP = m
	})
	return sharedHTTP
}

// GinMiddleware observes each request on the HTTP instruments.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
