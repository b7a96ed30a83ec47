// File: backend/services/audit-service/internal/search/opensearch/client.go

// Package opensearch индексирует записи аудита для полнотекстового поиска.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/domain/models"
)

// DefaultIndex is used when the config leaves the index name empty.
const DefaultIndex = "audit-log-entries"

const indexMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	},
	"mappings": {
		"properties": {
			"id": {"type": "long"},
			"action": {"type": "keyword"},
			"message": {"type": "text"},
			"user_id": {"type": "keyword"},
			"user_external_id": {"type": "keyword"},
			"user_display_name": {"type": "text"},
			"created_at": {"type": "date"},
			"metadata": {"type": "object", "enabled": false}
		}
	}
}`

// Config holds the connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Transport http.RoundTripper
}

// Client - обертка над клиентом OpenSearch
type Client struct {
	os     *opensearch.Client
	index  string
	logger *zap.Logger
}

// document is the indexed shape of a log entry.
type document struct {
	ID              int64                  `json:"id"`
	Action          string                 `json:"action"`
	Message         string                 `json:"message"`
	UserID          string                 `json:"user_id"`
	UserExternalID  string                 `json:"user_external_id"`
	UserDisplayName string                 `json:"user_display_name"`
	CreatedAt       time.Time              `json:"created_at"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// NewClient создает нового клиента OpenSearch
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		Transport:     cfg.Transport,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 200 * time.Millisecond
		},
		MaxRetries: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return &Client{os: client, index: index, logger: logger.Named("opensearch")}, nil
}

// Index returns the index name documents are written to.
func (c *Client) Index() string {
	return c.index
}

// Ping проверяет соединение с OpenSearch
func (c *Client) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch ping failed: %s", res.Status())
	}
	return nil
}

// EnsureIndex создает индекс, если он не существует.
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := opensearchapi.IndicesExistsRequest{Index: []string{c.index}}.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return responseError("check index", res)
	}

	created, err := opensearchapi.IndicesCreateRequest{
		Index: c.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer created.Body.Close()

	// Another replica may have created it first.
	if created.IsError() && !strings.Contains(readBody(created), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", c.index, created.Status())
	}
	c.logger.Info("Search index ready", zap.String("index", c.index))
	return nil
}

// IndexLogEntry upserts view keyed by the log entry id, so redelivery is idempotent.
func (c *Client) IndexLogEntry(ctx context.Context, view *models.LogEntryView, metadata map[string]interface{}) error {
	body, err := json.Marshal(document{
		ID:              view.ID,
		Action:          view.Action,
		Message:         view.Message,
		UserID:          view.UserID.String(),
		UserExternalID:  view.UserExternalID,
		UserDisplayName: view.UserDisplayName,
		CreatedAt:       view.CreatedAt.UTC(),
		Metadata:        metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal log entry %d: %w", view.ID, err)
	}

	res, err := opensearchapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(view.ID, 10),
		Body:       bytes.NewReader(body),
	}.Do(ctx, c.os)
	if err != nil {
		return fmt.Errorf("index log entry %d: %w", view.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("index log entry", res)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchLogEntries выполняет полнотекстовый поиск, новые записи первыми.
func (c *Client) SearchLogEntries(ctx context.Context, query string, limit, offset int) ([]*models.LogEntryView, int64, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(searchQuery(query)); err != nil {
		return nil, 0, fmt.Errorf("failed to encode search query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{c.index},
		Body:  &buf,
	}
	if limit > 0 {
		req.Size = &limit
	}
	if offset > 0 {
		req.From = &offset
	}

	res, err := req.Do(ctx, c.os)
	if err != nil {
		return nil, 0, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, responseError("search", res)
	}

	var result searchResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	views := make([]*models.LogEntryView, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		views = append(views, hit.Source.view())
	}
	return views, result.Hits.Total.Value, nil
}

func searchQuery(query string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"message", "action", "user_display_name", "user_external_id"},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]string{"order": "desc"}},
		},
	}
}

func (d document) view() *models.LogEntryView {
	userID, _ := uuid.Parse(d.UserID)
	return &models.LogEntryView{
		LogEntry: models.LogEntry{
			ID:        d.ID,
			Action:    d.Action,
			UserID:    userID,
			Message:   d.Message,
			CreatedAt: d.CreatedAt,
		},
		UserExternalID:  d.UserExternalID,
		UserDisplayName: d.UserDisplayName,
	}
}

func readBody(res *opensearchapi.Response) string {
	body, _ := io.ReadAll(res.Body)
	return string(body)
}

func responseError(op string, res *opensearchapi.Response) error {
	return fmt.Errorf("%s: %s, body: %s", op, res.Status(), readBody(res))
}
