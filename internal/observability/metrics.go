package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdstock_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cdstock_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cdstock_ws_active_connections",
			Help: "Number of active websocket feed connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdstock_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	broadcastRecipientsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdstock_broadcast_recipients_total",
			Help: "Broadcast fan-out recipients by outcome.",
		},
		[]string{"outcome"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cdstock_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	outboxDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cdstock_outbox_depth",
			Help: "Chat messages waiting in the offline outbox.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		broadcastRecipientsTotal,
		amqpPublishErrorsTotal,
		outboxDepth,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

// ObserveBroadcast records a completed fan-out's per-recipient outcomes.
func ObserveBroadcast(succeeded, failed int) {
	broadcastRecipientsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	broadcastRecipientsTotal.WithLabelValues("failed").Add(float64(failed))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

// SetOutboxDepth reports the current offline queue length.
func SetOutboxDepth(n int) {
	outboxDepth.Set(float64(n))
}
