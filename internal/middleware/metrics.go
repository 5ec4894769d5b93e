package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts requests and records their latency per route template.
// A nil provider means the global one.
func Metrics(mp metric.MeterProvider) gin.HandlerFunc {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("github.com/cl0udz1/cyber-guard-platfrom/internal/middleware")
	requests, _ := meter.Int64Counter("cyberguard_http_requests_total",
		metric.WithDescription("HTTP requests served."))
	duration, _ := meter.Float64Histogram("cyberguard_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency."),
		metric.WithUnit("s"))

	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		// Raw paths carry scan ids; only the template is used as a label.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.status_code", strconv.Itoa(c.Writer.Status())),
		)
		requests.Add(c.Request.Context(), 1, attrs)
		duration.Record(c.Request.Context(), time.Since(started).Seconds(), attrs)
	}
}
