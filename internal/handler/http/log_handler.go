// File: backend/services/audit-service/internal/handler/http/log_handler.go

package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

const defaultSearchLimit = 20

// LogService is the part of the query service the log routes need.
type LogService interface {
	ListLogs(ctx context.Context, params models.ListLogEntriesParams) ([]*models.LogEntryView, error)
	GetLog(ctx context.Context, id int64) (*models.LogEntryView, error)
	ListLogsByUser(ctx context.Context, userID uuid.UUID) ([]*models.LogEntryView, error)
	ListLogsByAction(ctx context.Context, action string) ([]*models.LogEntryView, error)
	CreateLog(ctx context.Context, req models.CreateLogRequest) (*models.LogEntryView, error)
	SearchLogs(ctx context.Context, query string, limit, offset int) ([]*models.LogEntryView, int64, error)
}

// LogHandler обрабатывает HTTP-запросы к журналу аудита
type LogHandler struct {
	logs   LogService
	logger *zap.Logger
}

// NewLogHandler создает новый экземпляр LogHandler
func NewLogHandler(logs LogService, logger *zap.Logger) *LogHandler {
	return &LogHandler{
		logs:   logs,
		logger: logger.Named("log_handler"),
	}
}

// RegisterRoutes mounts the handler under group.
func (h *LogHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.ListLogs)
	group.POST("", h.CreateLog)
	group.GET("/search", h.SearchLogs)
	group.GET("/user/:userId", h.ListLogsByUser)
	group.GET("/action/:action", h.ListLogsByAction)
	group.GET("/:id", h.GetLog)
}

// ListLogs GET /logs?from=&to=&limit=&offset=
func (h *LogHandler) ListLogs(c *gin.Context) {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	limit, offset, err := parsePaging(c)
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}

	views, err := h.logs.ListLogs(c.Request.Context(), models.ListLogEntriesParams{
		DateFrom: from,
		DateTo:   to,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, views)
}

// GetLog GET /logs/:id
func (h *LogHandler) GetLog(c *gin.Context) {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	view, err := h.logs.GetLog(c.Request.Context(), id)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, view)
}

// ListLogsByUser GET /logs/user/:userId
func (h *LogHandler) ListLogsByUser(c *gin.Context) {
	userID, err := parseUUIDParam(c, "userId")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	views, err := h.logs.ListLogsByUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, views)
}

// ListLogsByAction GET /logs/action/:action
func (h *LogHandler) ListLogsByAction(c *gin.Context) {
	views, err := h.logs.ListLogsByAction(c.Request.Context(), c.Param("action"))
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, views)
}

// CreateLog POST /logs
func (h *LogHandler) CreateLog(c *gin.Context) {
	var req models.CreateLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, "invalid request body: "+err.Error(), h.logger)
		return
	}
	view, err := h.logs.CreateLog(c.Request.Context(), req)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithCreated(c, view)
}

// SearchLogs GET /logs/search?q=
func (h *LogHandler) SearchLogs(c *gin.Context) {
	limit, offset, err := parsePaging(c)
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}
	views, total, err := h.logs.SearchLogs(c.Request.Context(), c.Query("q"), limit, offset)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, SearchResponse{Total: total, Items: views})
}
