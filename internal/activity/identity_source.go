// File: backend/services/audit-service/internal/activity/identity_source.go

package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxIdentityResponse = 8 << 20

// HTTPIdentitySource reads identities from a JSON list endpoint.
type HTTPIdentitySource struct {
	url    string
	client *http.Client
}

// NewHTTPIdentitySource создает источник идентичностей поверх HTTP
func NewHTTPIdentitySource(url string, timeout time.Duration) *HTTPIdentitySource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPIdentitySource{url: url, client: &http.Client{Timeout: timeout}}
}

// ListIdentities fetches the identity list. Any non-2xx status is an error.
func (s *HTTPIdentitySource) ListIdentities(ctx context.Context) ([]Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch identities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch identities: unexpected status %s", resp.Status)
	}

	var identities []Identity
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxIdentityResponse)).Decode(&identities); err != nil {
		return nil, fmt.Errorf("decode identities: %w", err)
	}
	return identities, nil
}
