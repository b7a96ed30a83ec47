// File: backend/services/audit-service/internal/handler/http/response.go

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/handler/http/middleware"
)

// ResponseError представляет структуру ошибки в ответе API
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SearchResponse is the body of a full-text search.
type SearchResponse struct {
	Total int64       `json:"total"`
	Items interface{} `json:"items"`
}

// RespondWithError отправляет ответ с ошибкой
func RespondWithError(c *gin.Context, statusCode int, message string, errorCode string, logger *zap.Logger) {
	log := middleware.RequestLogger(c, logger)
	fields := []zap.Field{
		zap.Int("status_code", statusCode),
		zap.String("error_message", message),
		zap.String("error_code", errorCode),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("API error response", fields...)
	} else {
		log.Warn("API error response", fields...)
	}

	c.JSON(statusCode, ResponseError{
		Error: message,
		Code:  errorCode,
	})
}

// RespondWithAppError maps a domain error to its API status and code.
func RespondWithAppError(c *gin.Context, err error, logger *zap.Logger) {
	appErr := domainErrors.ToAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		middleware.RequestLogger(c, logger).Error("Request failed", zap.Error(err))
	}
	RespondWithError(c, appErr.StatusCode, appErr.Message, appErr.Code, logger)
}

// RespondWithValidationError отправляет 400 с кодом validation_error
func RespondWithValidationError(c *gin.Context, message string, logger *zap.Logger) {
	RespondWithError(c, http.StatusBadRequest, message, domainErrors.CodeValidation, logger)
}

// RespondWithData отправляет успешный ответ только с данными
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondWithCreated отправляет ответ о успешном создании ресурса
func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// RespondWithNoContent отправляет ответ без содержимого
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
