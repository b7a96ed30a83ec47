// File: backend/services/audit-service/internal/service/projection_writer.go

package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
	eventModels "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/telemetry"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/timeutil"
)

// manualEventType labels log entries appended through the API.
const manualEventType = "manual"

// LogIndexer ships committed log entries to the search index.
type LogIndexer interface {
	IndexLogEntry(ctx context.Context, view *models.LogEntryView, metadata map[string]interface{}) error
}

// UserCache is a read-through cache of projection users.
// Lookups return (nil, nil) on a miss.
type UserCache interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error)
	Set(ctx context.Context, user *models.ProjectionUser) error
	Invalidate(ctx context.Context, user *models.ProjectionUser) error
}

// ApplyResult describes what one applied event wrote.
type ApplyResult struct {
	User        *models.ProjectionUser
	Entry       *models.LogEntry
	UserCreated bool
	NameUpdated bool
}

// ProjectionWriter applies upstream events to the projection tables.
// Each event is written in exactly one transaction.
type ProjectionWriter struct {
	tx       repository.Transactor
	resolver *IdentityResolver
	users    repository.ProjectionUserRepository
	logs     repository.LogEntryRepository
	indexer  LogIndexer
	cache    UserCache
	logger   *zap.Logger
}

// NewProjectionWriter создает новый экземпляр ProjectionWriter.
// indexer and cache are optional and may be nil.
func NewProjectionWriter(
	tx repository.Transactor,
	resolver *IdentityResolver,
	users repository.ProjectionUserRepository,
	logs repository.LogEntryRepository,
	indexer LogIndexer,
	cache UserCache,
	logger *zap.Logger,
) *ProjectionWriter {
	return &ProjectionWriter{
		tx:       tx,
		resolver: resolver,
		users:    users,
		logs:     logs,
		indexer:  indexer,
		cache:    cache,
		logger:   logger.Named("projection_writer"),
	}
}

// ApplyUserCreated records the name of a newly announced identity.
func (w *ProjectionWriter) ApplyUserCreated(ctx context.Context, evt *eventModels.UserProjectionCreated) (*ApplyResult, error) {
	externalID := evt.ExternalID.String()
	createdAt := timeutil.NormalizeUTC(evt.CreatedAt.Time)
	name := displayName(evt.FirstName, evt.LastName)

	return w.apply(ctx, string(eventModels.EventTypeUserProjectionCreated), externalID, nil,
		func(ctx context.Context, result *ApplyResult) error {
			user, created, err := w.resolver.ResolveOrCreate(ctx, externalID, name, createdAt)
			if err != nil {
				return err
			}
			result.User, result.UserCreated = user, created

			if !created && user.DisplayName != name {
				if err := w.users.UpdateDisplayName(ctx, user.ID, name, createdAt); err != nil {
					return err
				}
				user.DisplayName = name
				user.UpdatedAt = &createdAt
				result.NameUpdated = true
			}

			result.Entry = &models.LogEntry{
				Action:    models.ActionNameCreated,
				UserID:    user.ID,
				Message:   nameCreatedMessage(evt.Username, evt.Email, evt.FirstName, evt.MiddleName, evt.LastName),
				CreatedAt: createdAt,
			}
			return w.logs.Append(ctx, result.Entry)
		})
}

// ApplyUserRenamed sets the new name unconditionally; renames are not ordered
// against each other, the last one applied wins.
func (w *ProjectionWriter) ApplyUserRenamed(ctx context.Context, evt *eventModels.UserProjectionRenamed) (*ApplyResult, error) {
	externalID := evt.ExternalID.String()
	changedAt := timeutil.NormalizeUTC(evt.ChangedAt.Time)
	name := displayName(evt.NewFirstName, evt.NewLastName)

	return w.apply(ctx, string(eventModels.EventTypeUserProjectionRenamed), externalID, nil,
		func(ctx context.Context, result *ApplyResult) error {
			user, created, err := w.resolver.ResolveOrCreate(ctx, externalID, name, changedAt)
			if err != nil {
				return err
			}
			result.User, result.UserCreated = user, created

			if err := w.users.UpdateDisplayName(ctx, user.ID, name, changedAt); err != nil {
				return err
			}
			user.DisplayName = name
			user.UpdatedAt = &changedAt
			result.NameUpdated = true

			oldFull := joinName(evt.OldFirstName, optional(evt.OldMiddleName), evt.OldLastName)
			newFull := joinName(evt.NewFirstName, optional(evt.NewMiddleName), evt.NewLastName)
			result.Entry = &models.LogEntry{
				Action:    models.ActionNameChanged,
				UserID:    user.ID,
				Message:   nameChangedMessage(evt.Username, evt.Email, oldFull, newFull),
				CreatedAt: changedAt,
			}
			return w.logs.Append(ctx, result.Entry)
		})
}

// ApplyActivity appends a generic activity entry. Unknown identities are
// created with an empty display name.
func (w *ProjectionWriter) ApplyActivity(ctx context.Context, evt *eventModels.GenericActivityEvent) (*ApplyResult, error) {
	externalID := evt.ExternalID.String()
	createdAt := timeutil.NormalizeUTC(evt.CreatedAt.Time)

	var metadata map[string]interface{}
	if len(evt.Metadata) > 0 {
		metadata = evt.Metadata.Plain()
	}

	return w.apply(ctx, string(eventModels.EventTypeGenericActivity), externalID, metadata,
		func(ctx context.Context, result *ApplyResult) error {
			user, created, err := w.resolver.ResolveOrCreate(ctx, externalID, "", createdAt)
			if err != nil {
				return err
			}
			result.User, result.UserCreated = user, created

			result.Entry = &models.LogEntry{
				Action:    truncateAction(evt.Action),
				UserID:    user.ID,
				Message:   activityMessage(evt.EventType, evt.Message, evt.Severity),
				CreatedAt: createdAt,
			}
			return w.logs.Append(ctx, result.Entry)
		})
}

// RecordLog appends an administrative log entry stamped at.
func (w *ProjectionWriter) RecordLog(ctx context.Context, req models.CreateLogRequest, at time.Time) (*ApplyResult, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, domainErrors.Validationf("action is required")
	}
	if len([]rune(action)) > models.MaxActionLength {
		return nil, domainErrors.Validationf("action exceeds %d characters", models.MaxActionLength)
	}
	if strings.TrimSpace(req.UserExternalID) == "" {
		return nil, domainErrors.Validationf("user external id is required")
	}

	fallback := "Unknown User"
	if req.UserName != nil && strings.TrimSpace(*req.UserName) != "" {
		fallback = strings.TrimSpace(*req.UserName)
	}
	at = timeutil.NormalizeUTC(at)

	return w.apply(ctx, manualEventType, req.UserExternalID, nil,
		func(ctx context.Context, result *ApplyResult) error {
			user, created, err := w.resolver.ResolveOrCreate(ctx, req.UserExternalID, fallback, at)
			if err != nil {
				return err
			}
			result.User, result.UserCreated = user, created

			result.Entry = &models.LogEntry{
				Action:    action,
				UserID:    user.ID,
				Message:   req.Message,
				CreatedAt: at,
			}
			return w.logs.Append(ctx, result.Entry)
		})
}

func (w *ProjectionWriter) apply(
	ctx context.Context,
	eventType string,
	externalID string,
	metadata map[string]interface{},
	fn func(ctx context.Context, result *ApplyResult) error,
) (*ApplyResult, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "projection.apply",
		attribute.String("event.type", eventType),
		attribute.String("user.external_id", externalID),
	)
	defer span.End()

	result := &ApplyResult{}
	err := w.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		return fn(txCtx, result)
	})
	metrics.EventProcessingDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.EventsProcessedTotal.WithLabelValues(eventType, metrics.StatusFailure).Inc()
		w.logger.Error("Failed to apply event",
			zap.String("event_type", eventType),
			zap.String("external_id", externalID),
			zap.Error(err))
		return nil, err
	}

	metrics.EventsProcessedTotal.WithLabelValues(eventType, metrics.StatusSuccess).Inc()
	span.SetAttributes(attribute.Int64("log_entry.id", result.Entry.ID))
	w.logger.Debug("Event applied",
		zap.String("event_type", eventType),
		zap.String("external_id", externalID),
		zap.Int64("log_entry_id", result.Entry.ID),
		zap.Bool("user_created", result.UserCreated))

	w.afterCommit(ctx, result, metadata)
	return result, nil
}

// afterCommit refreshes derived stores. Failures here never fail the event.
func (w *ProjectionWriter) afterCommit(ctx context.Context, result *ApplyResult, metadata map[string]interface{}) {
	if w.cache != nil && result.NameUpdated {
		if err := w.cache.Invalidate(ctx, result.User); err != nil {
			w.logger.Warn("Failed to invalidate user cache",
				zap.String("user_id", result.User.ID.String()), zap.Error(err))
		}
	}

	if w.indexer != nil {
		view := &models.LogEntryView{
			LogEntry:        *result.Entry,
			UserExternalID:  result.User.ExternalID,
			UserDisplayName: result.User.DisplayName,
		}
		if err := w.indexer.IndexLogEntry(ctx, view, metadata); err != nil {
			metrics.SearchIndexFailuresTotal.Inc()
			w.logger.Warn("Failed to index log entry",
				zap.Int64("log_entry_id", result.Entry.ID), zap.Error(err))
		}
	}
}

func truncateAction(action string) string {
	runes := []rune(action)
	if len(runes) <= models.MaxActionLength {
		return action
	}
	return string(runes[:models.MaxActionLength])
}
