// Package vectorsearch is a REST client for the vector similarity index.
// The index is an optional capability; queries degrade to a catalog scan when
// it is absent or failing.
package vectorsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 4 << 20

type Config struct {
	URL        string        `split_words:"true"`
	Token      string        `split_words:"true"`
	Collection string        `split_words:"true" default:"products"`
	Timeout    time.Duration `split_words:"true" default:"10s"`
}

// Enabled reports whether an index endpoint is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// Match is one nearest-neighbor hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Client struct {
	baseURL    string
	token      string
	collection string
	httpClient *http.Client
}

type queryRequest struct {
	Vector []float64 `json:"vector"`
	TopK   int       `json:"top_k"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
	Error   string  `json:"error,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("vector search url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid vector search url: %w", err)
	}

	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = "products"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		collection: collection,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Query returns up to topK nearest neighbors for the given embedding.
func (c *Client) Query(ctx context.Context, vector []float64, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector is empty")
	}
	if topK <= 0 {
		topK = 10
	}

	body, err := json.Marshal(queryRequest{Vector: vector, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/collections/%s/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute query request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read query response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("vector search http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed queryResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return parsed.Matches, nil
}
