package redisCache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gomarketplace/configs"
	"gomarketplace/internal/domain"
	"gomarketplace/pkg/prometheus"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client redis.Cmdable
	prefix string
	log    *slog.Logger
}

func NewCache(ctx context.Context, cfg *configs.Config, log *slog.Logger) (*RedisRepo, error) {
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.RD.Host,
		DB:           cfg.RD.DB,
		Username:     cfg.RD.User,
		Password:     cfg.RD.Password,
		MaxRetries:   cfg.RD.MaxRetries,
		DialTimeout:  cfg.RD.DialTimeout,
		ReadTimeout:  cfg.RD.ReadTimeout,
		WriteTimeout: cfg.RD.WriteTimeout,
	})

	log.Info("attempting to connect to Redis", "host", cfg.RD.Host, "db", cfg.RD.DB)

	if err := db.Ping(ctx).Err(); err != nil {
		log.Error("Redis connection failed", "error", err, "host", cfg.RD.Host)
		_ = db.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("successfully connected to Redis", "host", cfg.RD.Host)

	return NewWithClient(db, cfg.RD.Prefix, log), nil
}

func NewWithClient(client redis.Cmdable, prefix string, log *slog.Logger) *RedisRepo {
	return &RedisRepo{
		client: client,
		prefix: prefix,
		log:    log,
	}
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	r.log.Debug("getting value from Redis", "key", key)

	data, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		prometheus.ObserveRedis("get", start, nil)
		r.log.Debug("key not found", "key", key)
		return "", domain.ErrRecordNotFound
	}
	prometheus.ObserveRedis("get", start, err)
	if err != nil {
		r.log.Debug("error getting from redis", "key", key, "error", err)
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := r.client.Set(ctx, r.prefix+key, value, 0).Err()
	prometheus.ObserveRedis("set", start, err)
	if err != nil {
		r.log.Error("error while setting to Redis", "error", err, "key", key)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.log.Debug("value stored in Redis", "key", key, "bytes", len(value))
	return nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client when it owns one.
func (r *RedisRepo) Close() error {
	if c, ok := r.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
