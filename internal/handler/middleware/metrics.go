package middleware

import (
	"strconv"
	"time"

	"venuebook/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request totals and latency per route. The
// route template (not the raw path) is the label, so cardinality stays
// bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
