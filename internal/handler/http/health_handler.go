// File: backend/services/audit-service/internal/handler/http/health_handler.go
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/healthcheck"
)

// HealthHandler handles HTTP health check requests.
type HealthHandler struct {
	health *healthcheck.Service
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil service reports only liveness.
func NewHealthHandler(health *healthcheck.Service, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		health: health,
		logger: logger.Named("http_health_handler"),
	}
}

// Health reports every registered component; 503 when a required one is down.
func (h *HealthHandler) Health(c *gin.Context) {
	if h.health == nil {
		h.Live(c)
		return
	}
	h.health.Handler()(c.Writer, c.Request)
}

// Live answers as long as the process serves HTTP.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": healthcheck.StatusUp})
}
