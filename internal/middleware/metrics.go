package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taufik7000/efarina-finance-flow/internal/metrics"
)

// Metrics observes every request by its route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
