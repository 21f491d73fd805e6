package middleware

import (
	"context"

	"github.com/erp/commercesync/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingLabels tags profiling samples taken while serving a request with
// its route, method and platform. Unmatched routes are not labelled.
func ProfilingLabels() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		labels := map[string]string{
			"route":    route,
			"method":   c.Request.Method,
			"platform": c.Param("platform"),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
