package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// unmatchedRoute labels requests that matched no route, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

// Metrics returns a middleware that records request count, latency and
// in-flight requests by route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		start := time.Now()

		m.IncrementActiveRequests(method)
		defer m.DecrementActiveRequests(method)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.RecordRequest(method, route, c.Writer.Status(), time.Since(start))
	}
}
