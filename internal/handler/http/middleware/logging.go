// File: backend/services/audit-service/internal/handler/http/middleware/logging.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/logger"
)

// Context keys set by the middleware.
const (
	RequestIDKey     = "request_id"
	LoggerKey        = "logger"
	RequestIDHeader  = "X-Request-ID"
	maxRequestIDSize = 128
)

// LoggingMiddleware логирует информацию о запросах
func LoggingMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Upstream proxies may already have assigned an id.
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDSize {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		requestLogger := logger.WithRequestID(log, requestID)
		c.Set(LoggerKey, requestLogger)

		startTime := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(startTime)),
			zap.Int("size", c.Writer.Size()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= 500 {
			requestLogger.Error("Request completed", fields...)
			return
		}
		requestLogger.Info("Request completed", fields...)
	}
}

// RequestLogger returns the request scoped logger, or fallback outside the middleware.
func RequestLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Get(LoggerKey); ok {
		if requestLogger, ok := l.(*zap.Logger); ok {
			return requestLogger
		}
	}
	return fallback
}
