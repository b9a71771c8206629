package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresConfig configures the primary profile store.
type PostgresConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
}

// PostgresStore is the primary user-profile store backed by Postgres.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("profile postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
	))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// NewPostgresStoreFromDB wraps an existing bun handle, used by tests and by
// callers that share one connection pool across stores.
func NewPostgresStoreFromDB(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (*UserProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is empty")
	}

	p := new(UserProfile)
	err := s.db.NewSelect().Model(p).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *UserProfile) error {
	if p == nil {
		return errors.New("profile is nil")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return errors.New("user id is empty")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.NewInsert().
		Model(p).
		On("CONFLICT (user_id) DO UPDATE").
		Set("permissions = EXCLUDED.permissions").
		Set("preferences = EXCLUDED.preferences").
		Set("body_measurements = EXCLUDED.body_measurements").
		Set("age = EXCLUDED.age").
		Set("parental_consent = EXCLUDED.parental_consent").
		Set("auto_refund_count = EXCLUDED.auto_refund_count").
		Set("auto_refund_reset_date = EXCLUDED.auto_refund_reset_date").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
