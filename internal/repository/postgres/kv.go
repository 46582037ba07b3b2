package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gomarketplace/internal/domain"
	"gomarketplace/pkg/prometheus"
)

const kvTable = "kv_store"

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	defer prometheus.ObserveQuery("select", kvTable, start)

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Debug("key not found in database", "key", key)
		return "", domain.ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get value %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	defer prometheus.ObserveQuery("upsert", kvTable, start)

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO kv_store (key, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert value %s: %w", key, err)
	}
	s.log.Debug("value stored in database", "key", key, "bytes", len(value))
	return nil
}
