package cachedRepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gomarketplace/internal/domain"
	"gomarketplace/pkg/prometheus"
)

type KVRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// CachedRepo writes through to both stores and reads the cache first.
type CachedRepo struct {
	repo  KVRepository
	cache KVRepository
	log   *slog.Logger
}

func NewCachedRepo(repo KVRepository, cache KVRepository, log *slog.Logger) *CachedRepo {
	return &CachedRepo{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (r *CachedRepo) Get(ctx context.Context, key string) (string, error) {
	r.log.Debug("attempting to get value from cache", "key", key)
	value, err := r.cache.Get(ctx, key)
	if err == nil {
		prometheus.CacheOperations.WithLabelValues("hit").Inc()
		r.log.Debug("value found in cache", "key", key)
		return value, nil
	}
	prometheus.CacheOperations.WithLabelValues("miss").Inc()
	if !errors.Is(err, domain.ErrRecordNotFound) {
		r.log.Warn("error getting from cache, falling back to database", "error", err, "key", key)
	}

	value, err = r.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			r.log.Error("failed to get value from database", "error", err, "key", key)
		}
		return "", err
	}

	r.log.Debug("value found in database, saving to cache", "key", key)
	if err := r.cache.Set(ctx, key, value); err != nil {
		r.log.Warn("failed to back-fill cache", "error", err, "key", key)
	}
	return value, nil
}

func (r *CachedRepo) Set(ctx context.Context, key, value string) error {
	if err := r.repo.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save value to database: %w", err)
	}
	if err := r.cache.Set(ctx, key, value); err != nil {
		r.log.Warn("failed to save value to cache", "error", err, "key", key)
	}
	return nil
}
