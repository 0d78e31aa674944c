package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EZGGdotxyz/ezgg-service/internal/metrics"
)

// RequestMetrics records per-route request counts and latency.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, path,
		).Observe(time.Since(started).Seconds())
	}
}
