package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	upstashx "github.com/stylora/concierge/pkg/upstash"
)

const (
	defaultProfileKeyPrefix = "concierge:profile:"
	defaultProfileTTL       = 24 * time.Hour
)

// UpstashStore is the secondary profile store, used as a read fallback when
// the primary store is unreachable and as a write-through cache target.
type UpstashStore struct {
	client    *upstashx.Client
	keyPrefix string
	ttl       time.Duration
}

// UpstashStoreOption customizes an UpstashStore.
type UpstashStoreOption func(*UpstashStore)

func WithKeyPrefix(prefix string) UpstashStoreOption {
	return func(s *UpstashStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) UpstashStoreOption {
	return func(s *UpstashStore) {
		s.ttl = ttl
	}
}

func NewUpstashStore(client *upstashx.Client, opts ...UpstashStoreOption) (*UpstashStore, error) {
	if client == nil {
		return nil, errors.New("upstash client is required")
	}

	store := &UpstashStore{
		client:    client,
		keyPrefix: defaultProfileKeyPrefix,
		ttl:       defaultProfileTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *UpstashStore) Load(ctx context.Context, userID string) (*UserProfile, error) {
	key, err := s.redisKey(userID)
	if err != nil {
		return nil, err
	}

	result, err := s.client.Do(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrProfileNotFound
	}

	var encoded string
	if err := json.Unmarshal(trimmed, &encoded); err != nil {
		return nil, fmt.Errorf("decode profile payload: %w", err)
	}

	var p UserProfile
	if err := json.Unmarshal([]byte(encoded), &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}

func (s *UpstashStore) Save(ctx context.Context, p *UserProfile) error {
	if p == nil {
		return errors.New("profile is nil")
	}
	key, err := s.redisKey(p.UserID)
	if err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}

	if _, err := s.client.Do(ctx, cmd); err != nil {
		return err
	}
	return nil
}

func (s *UpstashStore) Delete(ctx context.Context, userID string) error {
	key, err := s.redisKey(userID)
	if err != nil {
		return err
	}
	_, err = s.client.Do(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashStore) redisKey(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is empty")
	}
	return s.keyPrefix + userID, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
