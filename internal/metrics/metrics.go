package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Total number of persisted booking status transitions",
		},
		[]string{"from", "to"},
	)

	bookingOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operation_errors_total",
			Help: "Total number of refused or failed booking operations",
		},
		[]string{"operation"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Total number of attempted booking emails",
		},
		[]string{"template", "delivered"},
	)

	throttledRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_throttled_total",
			Help: "Total number of requests refused by a throttle",
		},
		[]string{"kind"},
	)

	paymentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_payment_events_total",
			Help: "Total number of consumed payment events",
		},
		[]string{"type", "outcome"},
	)

	kafkaPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_kafka_publish_errors_total",
			Help: "Total number of Kafka publish errors",
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
)

func ObserveTransition(from, to string) {
	bookingTransitions.WithLabelValues(from, to).Inc()
}

func ObserveOperationError(operation string) {
	bookingOperationErrors.WithLabelValues(operation).Inc()
}

func ObserveNotification(template string, delivered bool) {
	notificationsSent.WithLabelValues(template, strconv.FormatBool(delivered)).Inc()
}

func ObserveThrottled(kind string) {
	throttledRequests.WithLabelValues(kind).Inc()
}

func ObservePaymentEvent(eventType, outcome string) {
	paymentEvents.WithLabelValues(eventType, outcome).Inc()
}

func ObservePublishError() {
	kafkaPublishErrors.Inc()
}

// GinMiddleware records request durations by route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
