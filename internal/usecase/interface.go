package usecase

import (
	"context"

	"gomarketplace/internal/domain"
)

// KVStore returns domain.ErrRecordNotFound from Get when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type EventSink interface {
	Publish(ctx context.Context, event domain.CartEvent) error
}
