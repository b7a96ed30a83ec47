// File: backend/services/audit-service/internal/handler/http/user_handler.go

package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

// UserService is the part of the query service the user routes need.
type UserService interface {
	ListUsers(ctx context.Context) ([]*models.ProjectionUser, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.ProjectionUser, error)
	UpdateUserName(ctx context.Context, id uuid.UUID, req models.UpdateUserRequest) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// UserHandler обрабатывает HTTP-запросы, связанные с пользователями проекции
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler создает новый экземпляр UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.Named("user_handler"),
	}
}

// RegisterRoutes mounts the handler under group.
func (h *UserHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.ListUsers)
	group.POST("", h.CreateUser)
	group.GET("/external/:externalId", h.GetUserByExternalID)
	group.GET("/:id", h.GetUser)
	group.PUT("/:id", h.UpdateUser)
	group.DELETE("/:id", h.DeleteUser)
}

// ListUsers GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, users)
}

// GetUser обрабатывает запрос на получение пользователя по ID
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, user)
}

// GetUserByExternalID GET /users/external/:externalId
func (h *UserHandler) GetUserByExternalID(c *gin.Context) {
	user, err := h.users.GetUserByExternalID(c.Request.Context(), c.Param("externalId"))
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, user)
}

// CreateUser POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, "invalid request body: "+err.Error(), h.logger)
		return
	}
	user, err := h.users.CreateUser(c.Request.Context(), req)
	if err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithCreated(c, user)
}

// UpdateUser PUT /users/:id, only the display name is writable.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, "invalid request body: "+err.Error(), h.logger)
		return
	}
	if err := h.users.UpdateUserName(c.Request.Context(), id, req); err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithNoContent(c)
}

// DeleteUser DELETE /users/:id, cascading to the user's log entries.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		RespondWithValidationError(c, err.Error(), h.logger)
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		RespondWithAppError(c, err, h.logger)
		return
	}
	RespondWithNoContent(c)
}
