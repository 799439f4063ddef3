package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clubconnect-api/internal/service"
)

const unmatchedRoute = "unmatched"

// healthRoutes are polled by orchestrators and scrapers and stay out of the request metrics.
var healthRoutes = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

// Metrics records request count and latency per route template, so
// /covers/:id is one series however many occurrences are requested.
// Requests that match no route share a single label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, skip := healthRoutes[route]; skip {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
