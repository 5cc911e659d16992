package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/volleyplan/internal/models"
	"github.com/claude/volleyplan/internal/storage"
)

// HTTPClient implements DataSource by calling the volleyplan REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the catalog lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-Coach-ID", strconv.Itoa(CoachIDFromContext(ctx)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func (c *HTTPClient) ListDrills(ctx context.Context, f storage.DrillFilter) ([]models.Drill, error) {
	params := url.Values{}
	if f.Category != "" {
		params.Set("category", f.Category)
	}
	if f.Level != "" {
		params.Set("level", f.Level)
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	body, err := c.get(ctx, "/api/v1/drills", params)
	if err != nil {
		return nil, err
	}

	var drills []models.Drill
	if err := json.Unmarshal(body, &drills); err != nil {
		return nil, fmt.Errorf("httpclient: decode drills: %w", err)
	}
	return drills, nil
}

// RecentDrillBuckets ignores coachID; the coach travels in the context and
// is sent as X-Coach-ID.
func (c *HTTPClient) RecentDrillBuckets(ctx context.Context, _ int, n int) ([][]int, error) {
	params := url.Values{}
	params.Set("n", strconv.Itoa(n))

	body, err := c.get(ctx, "/api/v1/trainings/recent", params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Buckets [][]int `json:"recentDrillIdsBySession"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("httpclient: decode recent drills: %w", err)
	}
	return result.Buckets, nil
}
