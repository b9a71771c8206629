// Package ratelimit gates calls to external inference providers.
//
// The counter is pluggable: LocalCounter is correct for a single-process
// deployment, RedisCounter keeps one shared fixed window across instances.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	upstashx "github.com/stylora/concierge/pkg/upstash"
)

// Counter decides whether one more request is allowed for a key.
type Counter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config describes a fixed request window, e.g. 60 requests per 60s.
type Config struct {
	Requests int           `split_words:"true" default:"60"`
	Window   time.Duration `split_words:"true" default:"60s"`
}

// LocalCounter is a process-local token bucket per key.
type LocalCounter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewLocalCounter(cfg Config) *LocalCounter {
	requests := cfg.Requests
	if requests < 1 {
		requests = 1
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &LocalCounter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
	}
}

func (c *LocalCounter) Allow(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	limiter, ok := c.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.limiters[key] = limiter
	}
	c.mu.Unlock()
	return limiter.Allow(), nil
}

// RedisCounter is a shared fixed-window counter over the Upstash REST client,
// for deployments with more than one concierge instance.
type RedisCounter struct {
	client *upstashx.Client
	max    int64
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisCounter(client *upstashx.Client, cfg Config) (*RedisCounter, error) {
	if client == nil {
		return nil, fmt.Errorf("upstash client is required")
	}
	requests := cfg.Requests
	if requests < 1 {
		requests = 1
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &RedisCounter{
		client: client,
		max:    int64(requests),
		window: window,
		prefix: "concierge:ratelimit:",
		now:    time.Now,
	}, nil
}

func (c *RedisCounter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("%s%s:%d", c.prefix, key, c.now().Unix()/int64(c.window.Seconds()))

	result, err := c.client.Do(ctx, []any{"INCR", windowKey})
	if err != nil {
		return false, err
	}

	var count int64
	if err := json.Unmarshal(result, &count); err != nil {
		return false, fmt.Errorf("decode counter value: %w", err)
	}

	if count == 1 {
		// First hit in this window; bound the key's lifetime.
		if _, err := c.client.Do(ctx, []any{"EXPIRE", windowKey, int64(c.window.Seconds())}); err != nil {
			return false, err
		}
	}

	return count <= c.max, nil
}
