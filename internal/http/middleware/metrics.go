package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/localai-backend/internal/observability"
)

// Metrics records request count and latency per matched route. Requests that
// match no route share one label so scanners cannot blow up cardinality, and
// the scrape endpoint does not observe itself.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
