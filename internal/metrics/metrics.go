package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tazkara_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tazkara_bookings_created_total",
		Help: "Pending bookings created with a checkout session.",
	})

	PaymentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tazkara_payments_completed_total",
		Help: "Bookings promoted to completed by the webhook.",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tazkara_bookings_cancelled_total",
		Help: "Bookings cancelled by users.",
	})

	RefundsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tazkara_refunds_issued_total",
		Help: "Refunds issued during cancellation.",
	})

	WebhookReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tazkara_webhook_replays_total",
		Help: "Webhook deliveries skipped by the idempotency ledger.",
	})
)

// Middleware records per-request latency labeled by the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		RequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the prometheus registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
