package opensearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeCluster answers the handful of endpoints the client touches.
type fakeCluster struct {
	mu       sync.Mutex
	requests []recordedRequest
	indexed  bool
	routes   map[string]func(w http.ResponseWriter)
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/" {
		_, _ = w.Write([]byte(`{"version":{"number":"2.11.0","distribution":"opensearch"},"tagline":"The OpenSearch Project: https://opensearch.org/"}`))
		return
	}
	if route, ok := f.routes[r.Method+" "+r.URL.Path]; ok {
		route(w)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeCluster) find(method, path string) (recordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return recordedRequest{}, false
}

func newTestClient(t *testing.T, cluster *fakeCluster) *Client {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{Addresses: []string{srv.URL}, Index: "test-logs"}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestClient_Ping(t *testing.T) {
	client := newTestClient(t, &fakeCluster{})
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClient_EnsureIndexCreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{}
	cluster.routes = map[string]func(w http.ResponseWriter){
		"PUT /test-logs": func(w http.ResponseWriter) {
			cluster.indexed = true
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		},
	}
	client := newTestClient(t, cluster)

	require.NoError(t, client.EnsureIndex(context.Background()))
	assert.True(t, cluster.indexed)

	req, ok := cluster.find(http.MethodPut, "/test-logs")
	require.True(t, ok)
	assert.Contains(t, req.Body, `"user_external_id": {"type": "keyword"}`)
}

func TestClient_EnsureIndexExisting(t *testing.T) {
	cluster := &fakeCluster{}
	cluster.routes = map[string]func(w http.ResponseWriter){
		"HEAD /test-logs": func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) },
	}
	client := newTestClient(t, cluster)

	require.NoError(t, client.EnsureIndex(context.Background()))
	_, created := cluster.find(http.MethodPut, "/test-logs")
	assert.False(t, created)
}

func TestClient_IndexLogEntry(t *testing.T) {
	cluster := &fakeCluster{}
	cluster.routes = map[string]func(w http.ResponseWriter){
		"PUT /test-logs/_doc/42": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		},
	}
	client := newTestClient(t, cluster)

	userID := uuid.New()
	view := &models.LogEntryView{
		LogEntry: models.LogEntry{
			ID:        42,
			Action:    "Login",
			UserID:    userID,
			Message:   "Authentication: ok (Severity: Info)",
			CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		UserExternalID:  "u2",
		UserDisplayName: "",
	}
	require.NoError(t, client.IndexLogEntry(context.Background(), view, map[string]interface{}{"ip": "10.0.0.1"}))

	req, ok := cluster.find(http.MethodPut, "/test-logs/_doc/42")
	require.True(t, ok)
	var doc document
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, int64(42), doc.ID)
	assert.Equal(t, userID.String(), doc.UserID)
	assert.Equal(t, "u2", doc.UserExternalID)
	assert.Equal(t, "10.0.0.1", doc.Metadata["ip"])
}

func TestClient_IndexLogEntryError(t *testing.T) {
	cluster := &fakeCluster{}
	cluster.routes = map[string]func(w http.ResponseWriter){
		"PUT /test-logs/_doc/7": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
		},
	}
	client := newTestClient(t, cluster)

	err := client.IndexLogEntry(context.Background(), &models.LogEntryView{LogEntry: models.LogEntry{ID: 7}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestClient_SearchLogEntries(t *testing.T) {
	userID := uuid.New()
	cluster := &fakeCluster{}
	cluster.routes = map[string]func(w http.ResponseWriter){
		"POST /test-logs/_search": func(w http.ResponseWriter) {
			_, _ = w.Write([]byte(`{"hits":{"total":{"value":3},"hits":[{"_source":{
				"id": 9, "action": "NameChanged", "message": "User name changed from John Doe to Johnny Doe",
				"user_id": "` + userID.String() + `", "user_external_id": "u1", "user_display_name": "Johnny Doe",
				"created_at": "2024-03-01T11:00:00Z"}}]}}`))
		},
	}
	client := newTestClient(t, cluster)

	views, total, err := client.SearchLogEntries(context.Background(), "Johnny", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, views, 1)
	assert.Equal(t, int64(9), views[0].ID)
	assert.Equal(t, userID, views[0].UserID)
	assert.Equal(t, "Johnny Doe", views[0].UserDisplayName)
	assert.True(t, views[0].CreatedAt.Equal(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)))

	req, ok := cluster.find(http.MethodPost, "/test-logs/_search")
	require.True(t, ok)
	assert.True(t, strings.Contains(req.Body, `"multi_match"`))
	assert.True(t, strings.Contains(req.Body, `"Johnny"`))
}

func TestNewClientDefaultIndex(t *testing.T) {
	client, err := NewClient(Config{Addresses: []string{"http://localhost:9200"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultIndex, client.Index())
}
