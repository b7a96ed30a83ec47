package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/handler/http/middleware"
)

// MockQueryService is a mock type for QueryService
type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) ListLogs(ctx context.Context, params models.ListLogEntriesParams) ([]*models.LogEntryView, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LogEntryView), args.Error(1)
}

func (m *MockQueryService) GetLog(ctx context.Context, id int64) (*models.LogEntryView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LogEntryView), args.Error(1)
}

func (m *MockQueryService) ListLogsByUser(ctx context.Context, userID uuid.UUID) ([]*models.LogEntryView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LogEntryView), args.Error(1)
}

func (m *MockQueryService) ListLogsByAction(ctx context.Context, action string) ([]*models.LogEntryView, error) {
	args := m.Called(ctx, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LogEntryView), args.Error(1)
}

func (m *MockQueryService) CreateLog(ctx context.Context, req models.CreateLogRequest) (*models.LogEntryView, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LogEntryView), args.Error(1)
}

func (m *MockQueryService) SearchLogs(ctx context.Context, query string, limit, offset int) ([]*models.LogEntryView, int64, error) {
	args := m.Called(ctx, query, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.LogEntryView), args.Get(1).(int64), args.Error(2)
}

func (m *MockQueryService) ListUsers(ctx context.Context) ([]*models.ProjectionUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProjectionUser), args.Error(1)
}

func (m *MockQueryService) GetUser(ctx context.Context, id uuid.UUID) (*models.ProjectionUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectionUser), args.Error(1)
}

func (m *MockQueryService) GetUserByExternalID(ctx context.Context, externalID string) (*models.ProjectionUser, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectionUser), args.Error(1)
}

func (m *MockQueryService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.ProjectionUser, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectionUser), args.Error(1)
}

func (m *MockQueryService) UpdateUserName(ctx context.Context, id uuid.UUID, req models.UpdateUserRequest) error {
	return m.Called(ctx, id, req).Error(0)
}

func (m *MockQueryService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockQueryService) ListAuditEvents(ctx context.Context) ([]models.AuditEvent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEvent), args.Error(1)
}

func (m *MockQueryService) GetAuditEvent(ctx context.Context, id int64) (*models.AuditEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditEvent), args.Error(1)
}

func (m *MockQueryService) ListAuditEventsByExternalID(ctx context.Context, externalID string) ([]models.AuditEvent, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEvent), args.Error(1)
}

func (m *MockQueryService) ListAuditEventsByEntity(ctx context.Context, entityType string, entityID int64) ([]models.AuditEvent, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEvent), args.Error(1)
}

func (m *MockQueryService) CreateAuditEvent(ctx context.Context, req models.CreateAuditEventRequest) (*models.AuditEvent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditEvent), args.Error(1)
}

func newMockRouter(t *testing.T) (*gin.Engine, *MockQueryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := new(MockQueryService)
	t.Cleanup(func() { svc.AssertExpectations(t) })
	return SetupRouter(svc, nil, RouterConfig{AllowedOrigins: []string{"https://dashboard.example.com"}}, zap.NewNop()), svc
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestUserHandler_StoreFailureIsInternalError(t *testing.T) {
	router, svc := newMockRouter(t)
	svc.On("ListUsers", mock.Anything).Return(nil, errors.New("connection reset by peer"))

	rec := serve(router, http.MethodGet, "/api/v1/users")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ResponseError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Code)
	assert.NotContains(t, body.Error, "connection reset")
}

func TestLogHandler_SearchPassesPaging(t *testing.T) {
	router, svc := newMockRouter(t)
	hits := []*models.LogEntryView{{LogEntry: models.LogEntry{ID: 3, Action: "Login"}, UserExternalID: "u2"}}
	svc.On("SearchLogs", mock.Anything, "Login", defaultSearchLimit, 40).Return(hits, int64(41), nil)

	rec := serve(router, http.MethodGet, "/api/v1/logs/search?q=Login&offset=40")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int64                  `json:"total"`
		Items []*models.LogEntryView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(41), body.Total)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "u2", body.Items[0].UserExternalID)
}

func TestLogHandler_ListPassesRange(t *testing.T) {
	router, svc := newMockRouter(t)
	svc.On("ListLogs", mock.Anything, mock.MatchedBy(func(p models.ListLogEntriesParams) bool {
		return p.DateFrom != nil && p.DateTo == nil && p.DateFrom.Hour() == 8 && p.Limit == 5
	})).Return([]*models.LogEntryView{}, nil)

	// +02:00 is normalized to UTC.
	rec := serve(router, http.MethodGet, "/api/v1/logs?from=2024-03-01T10:00:00%2B02:00&limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditEventHandler_ByEntity(t *testing.T) {
	router, svc := newMockRouter(t)
	svc.On("ListAuditEventsByEntity", mock.Anything, "Login", int64(-4)).
		Return([]models.AuditEvent{{ID: 1, EntityType: "Login", EntityID: -4}}, nil).Once()

	rec := serve(router, http.MethodGet, "/api/v1/audit-events/entity/Login/-4")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []models.AuditEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, int64(-4), events[0].EntityID)

	rec = serve(router, http.MethodGet, "/api/v1/audit-events/entity/Login/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCorsMiddleware(t *testing.T) {
	router, svc := newMockRouter(t)
	svc.On("ListAuditEvents", mock.Anything).Return([]models.AuditEvent{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit-events", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := serve(router, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}
