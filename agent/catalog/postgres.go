package catalog

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

// PostgresConfig configures the catalog database connection.
type PostgresConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"8"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
}

// PostgresStore reads products from Postgres.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("catalog postgres dsn is required")
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

func NewPostgresStoreFromDB(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) TopRated(ctx context.Context, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 50
	}

	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		Order("rating DESC").
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog top rated: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) ByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog by ids: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
