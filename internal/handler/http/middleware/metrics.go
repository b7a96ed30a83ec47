// File: backend/services/audit-service/internal/handler/http/middleware/metrics.go

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
)

// MetricsMiddleware собирает метрики запросов
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RequestsTotal.Inc()
		start := time.Now()

		c.Next()

		metrics.ResponsesTotal.WithLabelValues(strconv.Itoa(c.Writer.Status())).Inc()

		// Unmatched routes share one label to keep cardinality bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RequestDurationByPath.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
