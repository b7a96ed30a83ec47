// File: backend/services/audit-service/internal/handler/http/router.go

package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/handler/http/middleware"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/healthcheck"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/telemetry"
)

// QueryService is everything the API serves; *service.QueryService implements it.
type QueryService interface {
	LogService
	UserService
	AuditEventService
}

// RouterConfig holds the HTTP settings the router needs.
type RouterConfig struct {
	AllowedOrigins []string
}

// SetupRouter настраивает маршрутизацию HTTP
func SetupRouter(query QueryService, health *healthcheck.Service, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CorsMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.TracingMiddleware())

	healthHandler := NewHealthHandler(health, logger)
	router.GET("/metrics", gin.WrapF(telemetry.PrometheusHandler()))
	router.GET("/health", healthHandler.Health)
	router.GET("/health/live", healthHandler.Live)

	api := router.Group("/api/v1")
	{
		NewLogHandler(query, logger).RegisterRoutes(api.Group("/logs"))
		NewUserHandler(query, logger).RegisterRoutes(api.Group("/users"))
		NewAuditEventHandler(query, logger).RegisterRoutes(api.Group("/audit-events"))
	}

	return router
}
