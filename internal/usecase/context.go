package usecase

import (
	"context"
	"fmt"

	"gomarketplace/internal/domain"
)

type storeKey struct{}

func WithStore(ctx context.Context, store *CartStore) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

func FromContext(ctx context.Context) (*CartStore, error) {
	store, ok := ctx.Value(storeKey{}).(*CartStore)
	if !ok || store == nil {
		return nil, fmt.Errorf("no cart store in context: %w", domain.ErrStoreNotInitialized)
	}
	return store, nil
}

// MustFromContext panics when the context carries no cart store.
func MustFromContext(ctx context.Context) *CartStore {
	store, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return store
}
