package middleware

import (
	"strconv"
	"time"

	"flowboard/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records every request against its route template, not the raw
// path, so ids in the URL do not blow up label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
