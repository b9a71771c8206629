// Package embedding wraps the OpenAI embeddings endpoint behind a small
// client. The client is an optional capability: construct it once at startup
// and pass it down only where configured.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	ratelimitx "github.com/stylora/concierge/pkg/ratelimit"
)

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true"`
	Model   string        `envconfig:"MODEL" split_words:"true" default:"text-embedding-3-small"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Enabled reports whether the provider is configured at all. Callers decide
// once at startup; an unconfigured provider is a degraded-but-valid setup.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

var ErrRateLimited = errors.New("embedding request rate limited")

// Client embeds text via the OpenAI API, gated by a request counter.
type Client struct {
	api     openaisdk.Client
	model   string
	counter ratelimitx.Counter
}

func NewClient(cfg Config, counter ratelimitx.Counter) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("embedding api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}

	return &Client{
		api:     openaisdk.NewClient(opts...),
		model:   model,
		counter: counter,
	}, nil
}

// Embed returns a fixed-length vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding input is empty")
	}

	if c.counter != nil {
		allowed, err := c.counter.Allow(ctx, "embedding")
		if err != nil {
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
		if !allowed {
			return nil, ErrRateLimited
		}
	}

	resp, err := c.api.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: openaisdk.String(text),
		},
		Model: openaisdk.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response has no data")
	}

	return resp.Data[0].Embedding, nil
}
