package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to the metadata index over its REST query API, authenticated
// via the api-key header.
type Client struct {
	endpoint   string
	index      string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientConfig holds connection settings for the index service.
type ClientConfig struct {
	Endpoint string        // Base URL of the index service
	Index    string        // Index name to query
	APIKey   string        // Optional; sent as api-key header when set
	Timeout  time.Duration // Per-request timeout; 0 means 15s
}

// NewClient creates a metadata index client.
func NewClient(cfg *ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search endpoint is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("search index name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		index:      cfg.Index,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("search"),
	}, nil
}

type queryResponse struct {
	Results []Result `json:"results"`
}

// Search implements Index. It POSTs the query to the index and decodes the
// scored documents. A response with no results decodes to an empty slice.
func (c *Client) Search(ctx context.Context, q Query) ([]Result, error) {
	path := fmt.Sprintf("/indexes/%s/query", c.index)

	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("search: encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: query index: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search: index returned status %d: %s", resp.StatusCode, clip(string(raw), 400))
	}

	var decoded queryResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	c.logger.Debug("index query completed",
		zap.Int("hits", len(decoded.Results)),
		zap.Bool("hybrid", len(q.Vector) > 0),
		zap.Duration("elapsed", time.Since(start)))

	return decoded.Results, nil
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Index = (*Client)(nil)
