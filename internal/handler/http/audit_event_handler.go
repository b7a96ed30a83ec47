// File: backend/services/audit-service/internal/handler/http/audit_event_handler.go

package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

// AuditEventService serves the dashboard view of log entries.
type AuditEventService interface {
	ListAuditEvents(ctx context.Context) ([]models.AuditEvent, error)
	GetAuditEvent(ctx context.Context, id int64) (*models.AuditEvent, error)
	ListAuditEventsByExternalID(ctx context.Context, externalID string) ([]models.AuditEvent, error)
	ListAuditEventsByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditEvent, error)
	CreateAuditEvent(ctx context.Context, req models.CreateAuditEventRequest) (*models.AuditEvent, error)
}

// AuditEventHandler обрабатывает запросы к событиям аудита
type AuditEventHandler struct {
	events AuditEventService
	logger *zap.Logger
}

// NewAuditEventHandler создает новый экземпляр AuditEventHandler
func NewAuditEventHandler(events AuditEventService, logger *zap.Logger) *AuditEventHandler {
	return &AuditEventHandler{
		events: events,
		logger: logger.Named("audit_event_handler"),
	}
}

// RegisterRoutes mounts the handler under group.
func (h *AuditEventHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.ListAuditEvents)
	group.POST("", h.CreateAuditEvent)
	group.GET("/user/:externalId", h.ListAuditEventsByUser)
	group.GET("/entity/:entityType/:entityId", h.ListAuditEventsByEntity)
	group.GET("/:id", h.GetAuditEvent)
}

func (h *AuditEventHandler) ListAuditEvents(c *gin.Context) {
	events, err := h.events.ListAuditEvents(c.Request.Context())
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, events)
}

func (h *AuditEventHandler) GetAuditEvent(c *gin.Context) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	event, err := h.events.GetAuditEvent(c.Request.Context(), id)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, event)
}

func (h *AuditEventHandler) ListAuditEventsByUser(c *gin.Context) {
	events, err := h.events.ListAuditEventsByExternalID(c.Request.Context(), c.Param("externalId"))
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, events)
}

func (h *AuditEventHandler) ListAuditEventsByEntity(c *gin.Context) {
	entityID, err := strconv.ParseInt(c.Param("entityId"), 10, 64)
	if err != nil {
		RespondWithValidationError(c, fmt.Sprintf("invalid entityId: %q is not an integer", c.Param("entityId")), h.logger)
		return
	}
	events, err := h.events.ListAuditEventsByEntity(c.Request.Context(), c.Param("entityType"), entityID)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, events)
}

// CreateAuditEvent записывает событие аудита от внешнего сервиса
func (h *AuditEventHandler) CreateAuditEvent(c *gin.Context) {
	var req models.CreateAuditEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, "invalid request body: "+err.Error(), h.logger)
		return
	}
	event, err := h.events.CreateAuditEvent(c.Request.Context(), req)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithCreated(c, event)
}
