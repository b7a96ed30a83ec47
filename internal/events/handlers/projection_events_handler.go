// File: backend/services/audit-service/internal/events/handlers/projection_events_handler.go
package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events"
	eventModels "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/service"
)

// ProjectionApplier is the write side the handlers feed.
type ProjectionApplier interface {
	ApplyUserCreated(ctx context.Context, evt *eventModels.UserProjectionCreated) (*service.ApplyResult, error)
	ApplyUserRenamed(ctx context.Context, evt *eventModels.UserProjectionRenamed) (*service.ApplyResult, error)
	ApplyActivity(ctx context.Context, evt *eventModels.GenericActivityEvent) (*service.ApplyResult, error)
}

// ProjectionEventsHandler decodes upstream identity and activity events and
// applies them to the projection.
type ProjectionEventsHandler struct {
	writer ProjectionApplier
	logger *zap.Logger
}

// NewProjectionEventsHandler creates a new ProjectionEventsHandler.
func NewProjectionEventsHandler(writer ProjectionApplier, logger *zap.Logger) *ProjectionEventsHandler {
	return &ProjectionEventsHandler{
		writer: writer,
		logger: logger.Named("projection_events_handler"),
	}
}

// Handlers maps every consumed event type to its handler.
func (h *ProjectionEventsHandler) Handlers() map[eventModels.EventType]eventModels.EventHandler {
	return map[eventModels.EventType]eventModels.EventHandler{
		eventModels.EventTypeUserProjectionCreated: h.HandleUserProjectionCreated,
		eventModels.EventTypeUserProjectionRenamed: h.HandleUserProjectionRenamed,
		eventModels.EventTypeGenericActivity:       h.HandleGenericActivity,
	}
}

// Register subscribes all handlers on consumer.
func (h *ProjectionEventsHandler) Register(consumer events.Consumer) {
	for eventType, handler := range h.Handlers() {
		consumer.RegisterHandler(eventType, handler)
	}
}

// HandleUserProjectionCreated handles audit.user_projection.created.
func (h *ProjectionEventsHandler) HandleUserProjectionCreated(ctx context.Context, event eventModels.CloudEvent) error {
	var payload eventModels.UserProjectionCreated
	if err := h.decode(event, &payload); err != nil {
		return err
	}
	_, err := h.writer.ApplyUserCreated(ctx, &payload)
	return err
}

// HandleUserProjectionRenamed handles audit.user_projection.renamed.
func (h *ProjectionEventsHandler) HandleUserProjectionRenamed(ctx context.Context, event eventModels.CloudEvent) error {
	var payload eventModels.UserProjectionRenamed
	if err := h.decode(event, &payload); err != nil {
		return err
	}
	_, err := h.writer.ApplyUserRenamed(ctx, &payload)
	return err
}

// HandleGenericActivity handles audit.activity.generic.
func (h *ProjectionEventsHandler) HandleGenericActivity(ctx context.Context, event eventModels.CloudEvent) error {
	var payload eventModels.GenericActivityEvent
	if err := h.decode(event, &payload); err != nil {
		return err
	}
	_, err := h.writer.ApplyActivity(ctx, &payload)
	return err
}

func (h *ProjectionEventsHandler) decode(event eventModels.CloudEvent, out eventModels.Validator) error {
	if err := eventModels.DecodeData(event, out); err != nil {
		h.logger.Error("Failed to decode event payload",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID),
			zap.ByteString("raw_data", event.Data),
			zap.Error(err))
		return err
	}
	return nil
}
