package middleware

import (
	"time"

	"bridge-keeper/services"

	"github.com/gin-gonic/gin"
)

/**
 * HTTP request accounting middleware
 * @description
 * - Counts requests handled by the keeper API per route
 * - Records request handling time
 * - Requests with status >= 400 additionally bump the error counter
 * - Feeds the counters reported by the healthz endpoint
 */
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		services.IncrementRequestCount(route)
		services.RecordRequestDuration(route, duration)

		if statusCode >= 400 {
			services.IncrementErrorCount(route)
		}
	}
}
