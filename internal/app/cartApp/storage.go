package cartApp

import (
	"context"
	"fmt"
	"log/slog"

	"gomarketplace/configs"
	"gomarketplace/internal/repository/cachedRepo"
	"gomarketplace/internal/repository/memory"
	"gomarketplace/internal/repository/postgres"
	"gomarketplace/internal/repository/redisCache"
	"gomarketplace/internal/usecase"
)

type closeFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// NewKVStore opens the storage backend selected by cfg.Cart.Backend.
func NewKVStore(ctx context.Context, cfg *configs.Config, log *slog.Logger) (usecase.KVStore, closeFunc, error) {
	switch cfg.Cart.Backend {
	case configs.BackendMemory:
		return memory.NewKV(), noopClose, nil

	case configs.BackendRedis:
		cache, err := redisCache.NewCache(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return cache, func(context.Context) error { return cache.Close() }, nil

	case configs.BackendPostgres:
		db, err := postgres.NewStore(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Disconnect, nil

	case configs.BackendCached:
		db, err := postgres.NewStore(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		cache, err := redisCache.NewCache(ctx, cfg, log)
		if err != nil {
			log.Warn("redis unavailable, using database only", "error", err)
			return db, db.Disconnect, nil
		}
		closer := func(ctx context.Context) error {
			cacheErr := cache.Close()
			if err := db.Disconnect(ctx); err != nil {
				return err
			}
			return cacheErr
		}
		return cachedRepo.NewCachedRepo(db, cache, log), closer, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Cart.Backend)
	}
}
