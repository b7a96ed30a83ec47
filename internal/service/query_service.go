// File: backend/services/audit-service/internal/service/query_service.go

package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/errors"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/repository"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/utils/metrics"
)

// LogSearcher runs full-text queries against the search index.
type LogSearcher interface {
	SearchLogEntries(ctx context.Context, query string, limit, offset int) ([]*models.LogEntryView, int64, error)
}

// QueryService serves the audit API: reads over the projection plus the
// administrative writes.
type QueryService struct {
	users    repository.ProjectionUserRepository
	logs     repository.LogEntryRepository
	writer   *ProjectionWriter
	searcher LogSearcher
	cache    UserCache
	logger   *zap.Logger
	now      func() time.Time
}

// NewQueryService создает новый экземпляр QueryService.
// searcher and cache may be nil.
func NewQueryService(
	users repository.ProjectionUserRepository,
	logs repository.LogEntryRepository,
	writer *ProjectionWriter,
	searcher LogSearcher,
	cache UserCache,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		users:    users,
		logs:     logs,
		writer:   writer,
		searcher: searcher,
		cache:    cache,
		logger:   logger.Named("query_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListLogs returns log entries newest first.
func (s *QueryService) ListLogs(ctx context.Context, params models.ListLogEntriesParams) ([]*models.LogEntryView, error) {
	if params.DateFrom != nil && params.DateTo != nil && params.DateFrom.After(*params.DateTo) {
		return nil, domainErrors.Validationf("from must not be after to")
	}
	if params.Limit < 0 || params.Offset < 0 {
		return nil, domainErrors.Validationf("limit and offset must not be negative")
	}
	return s.logs.List(ctx, params)
}

// GetLog returns one log entry.
func (s *QueryService) GetLog(ctx context.Context, id int64) (*models.LogEntryView, error) {
	return s.logs.FindByID(ctx, id)
}

// ListLogsByUser returns the entries of one user; an unknown user has none.
func (s *QueryService) ListLogsByUser(ctx context.Context, userID uuid.UUID) ([]*models.LogEntryView, error) {
	return s.logs.List(ctx, models.ListLogEntriesParams{UserID: &userID})
}

// ListLogsByAction returns the entries with the given action.
func (s *QueryService) ListLogsByAction(ctx context.Context, action string) ([]*models.LogEntryView, error) {
	return s.logs.List(ctx, models.ListLogEntriesParams{Action: &action})
}

// CreateLog appends a manual entry stamped now, creating the user if needed.
func (s *QueryService) CreateLog(ctx context.Context, req models.CreateLogRequest) (*models.LogEntryView, error) {
	result, err := s.writer.RecordLog(ctx, req, s.now())
	if err != nil {
		return nil, err
	}
	return &models.LogEntryView{
		LogEntry:        *result.Entry,
		UserExternalID:  result.User.ExternalID,
		UserDisplayName: result.User.DisplayName,
	}, nil
}

// SearchLogs queries the search index.
func (s *QueryService) SearchLogs(ctx context.Context, query string, limit, offset int) ([]*models.LogEntryView, int64, error) {
	if s.searcher == nil {
		return nil, 0, domainErrors.ErrSearchUnavailable
	}
	if strings.TrimSpace(query) == "" {
		return nil, 0, domainErrors.Validationf("query must not be empty")
	}
	return s.searcher.SearchLogEntries(ctx, query, limit, offset)
}

// ListUsers returns all users ordered by display name.
func (s *QueryService) ListUsers(ctx context.Context) ([]*models.ProjectionUser, error) {
	return s.users.List(ctx)
}

// GetUser returns a user by id, reading through the cache.
func (s *QueryService) GetUser(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error) {
	if s.cache != nil {
		if user, err := s.cache.GetByID(ctx, id); err != nil {
			s.logger.Warn("User cache lookup failed", zap.String("user_id", id.String()), zap.Error(err))
		} else if user != nil {
			metrics.CacheResultsTotal.WithLabelValues("hit").Inc()
			return user, nil
		}
		metrics.CacheResultsTotal.WithLabelValues("miss").Inc()
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, user)
	return user, nil
}

// GetUserByExternalID returns a user by its upstream id, reading through the cache.
func (s *QueryService) GetUserByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error) {
	if s.cache != nil {
		if user, err := s.cache.GetByExternalID(ctx, externalID); err != nil {
			s.logger.Warn("User cache lookup failed", zap.String("external_id", externalID), zap.Error(err))
		} else if user != nil {
			metrics.CacheResultsTotal.WithLabelValues("hit").Inc()
			return user, nil
		}
		metrics.CacheResultsTotal.WithLabelValues("miss").Inc()
	}

	user, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, user)
	return user, nil
}

// CreateUser creates a user directly. A taken external id surfaces as
// ErrDuplicateIdentity.
func (s *QueryService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.ProjectionUser, error) {
	externalID, err := normalizeExternalID(req.ExternalID)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.DisplayName) > models.MaxDisplayNameLength {
		return nil, domainErrors.Validationf("display name exceeds %d characters", models.MaxDisplayNameLength)
	}

	user := &models.ProjectionUser{
		ExternalID:  externalID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		CreatedAt:   s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Info("Failed to create user", zap.String("external_id", externalID), zap.Error(err))
		return nil, err
	}
	metrics.UsersCreatedTotal.Inc()
	return user, nil
}

// UpdateUserName replaces the display name and stamps updatedAt with now.
func (s *QueryService) UpdateUserName(ctx context.Context, id uuid.UUID, req models.UpdateUserRequest) error {
	if utf8.RuneCountInString(req.DisplayName) > models.MaxDisplayNameLength {
		return domainErrors.Validationf("display name exceeds %d characters", models.MaxDisplayNameLength)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.UpdateDisplayName(ctx, id, strings.TrimSpace(req.DisplayName), s.now()); err != nil {
		return err
	}
	s.forget(ctx, user)
	return nil
}

// DeleteUser removes a user together with its log entries.
func (s *QueryService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Projection user deleted", zap.String("user_id", id.String()), zap.String("external_id", user.ExternalID))
	s.forget(ctx, user)
	return nil
}

// ListAuditEvents returns every log entry as an AuditEvent, newest first.
func (s *QueryService) ListAuditEvents(ctx context.Context) ([]models.AuditEvent, error) {
	views, err := s.logs.List(ctx, models.ListLogEntriesParams{})
	if err != nil {
		return nil, err
	}
	return toAuditEvents(views), nil
}

// GetAuditEvent returns one log entry as an AuditEvent.
func (s *QueryService) GetAuditEvent(ctx context.Context, id int64) (*models.AuditEvent, error) {
	view, err := s.logs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event := models.NewAuditEvent(view)
	return &event, nil
}

// ListAuditEventsByExternalID returns the AuditEvents of one upstream identity.
func (s *QueryService) ListAuditEventsByExternalID(ctx context.Context, externalID string) ([]models.AuditEvent, error) {
	user, err := s.users.FindByExternalID(ctx, externalID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return []models.AuditEvent{}, nil
		}
		return nil, err
	}
	views, err := s.logs.List(ctx, models.ListLogEntriesParams{UserID: &user.ID})
	if err != nil {
		return nil, err
	}
	return toAuditEvents(views), nil
}

// systemUserName names identities first seen through CreateAuditEvent.
const systemUserName = "System User"

// CreateAuditEvent appends a log entry for req and returns it as an
// AuditEvent carrying the caller's entity reference.
func (s *QueryService) CreateAuditEvent(ctx context.Context, req models.CreateAuditEventRequest) (*models.AuditEvent, error) {
	name := systemUserName
	result, err := s.writer.RecordLog(ctx, models.CreateLogRequest{
		Action:         req.EventType,
		UserExternalID: req.UserID,
		UserName:       &name,
		Message:        req.Description,
	}, s.now())
	if err != nil {
		return nil, err
	}
	return &models.AuditEvent{
		ID:             result.Entry.ID,
		EventType:      result.Entry.Action,
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		Description:    result.Entry.Message,
		UserID:         result.User.ExternalID,
		Timestamp:      result.Entry.CreatedAt,
		AdditionalData: req.AdditionalData,
	}, nil
}

// ListAuditEventsByEntity returns the entries whose action equals entityType,
// labelled with the requested entity reference. Entries carry no entity of
// their own, so entityID only labels the result.
func (s *QueryService) ListAuditEventsByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditEvent, error) {
	views, err := s.logs.List(ctx, models.ListLogEntriesParams{Action: &entityType})
	if err != nil {
		return nil, err
	}
	events := toAuditEvents(views)
	for i := range events {
		events[i].EntityType = entityType
		events[i].EntityID = entityID
	}
	return events, nil
}

func toAuditEvents(views []*models.LogEntryView) []models.AuditEvent {
	events := make([]models.AuditEvent, 0, len(views))
	for _, v := range views {
		events = append(events, models.NewAuditEvent(v))
	}
	return events
}

func (s *QueryService) remember(ctx context.Context, user *models.ProjectionUser) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, user); err != nil {
		s.logger.Warn("Failed to cache user", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func (s *QueryService) forget(ctx context.Context, user *models.ProjectionUser) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, user); err != nil {
		s.logger.Warn("Failed to invalidate cached user", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}
