// Package trend is a REST client for the style-trend service. Trends are an
// optional capability: recommendations simply lose the trend bonus when the
// service is absent or failing.
package trend

import (
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

const maxResponseSizeBytes = 1 << 20

type Config struct {
	URL     string        `split_words:"true"`
	Token   string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"5s"`
}

// Enabled reports whether a trend endpoint is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type scoresResponse struct {
	Source string             `json:"source"`
	Scores map[string]float64 `json:"scores"`
	Error  string             `json:"error,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("trend service url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid trend service url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Scores returns a normalized interest score in [0,1] per keyword.
func (c *Client) Scores(ctx context.Context, keywords []string) (map[string]float64, error) {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("no keywords given")
	}

	endpoint := fmt.Sprintf("%s/api/trends?keywords=%s", c.baseURL, url.QueryEscape(strings.Join(cleaned, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build trends request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute trends request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read trends response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("trend service http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed scoresResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode trends response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return parsed.Scores, nil
}
