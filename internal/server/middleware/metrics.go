package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avaenvelope/internal/observability"
)

// unmatchedRoute labels requests that matched no route, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

// RouteKey is the context key under which dynamic dispatchers store the
// route template of a request that gin itself did not route.
const RouteKey = "route_template"

// Metrics returns a middleware that records request counts and latency by
// route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.GetString(RouteKey)
		}
		if route == "" {
			route = unmatchedRoute
		}
		m.RecordRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
