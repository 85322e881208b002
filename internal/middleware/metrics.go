package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorbot/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics records latency for every routed request except scrapes of
// metricsPath. Requests that hit no route share one label so random
// probes do not explode label cardinality.
func Metrics(metricsSvc *service.MetricsService, metricsPath ...string) gin.HandlerFunc {
	skip := map[string]struct{}{}
	for _, p := range metricsPath {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		if _, ok := skip[path]; ok {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
