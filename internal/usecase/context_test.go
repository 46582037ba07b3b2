package usecase_test

import (
	"context"
	"testing"

	"gomarketplace/internal/domain"
	"gomarketplace/internal/repository/memory"
	"gomarketplace/internal/usecase"
	"gomarketplace/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStoreContext(t *testing.T) {
	t.Run("store attached", func(t *testing.T) {
		store := usecase.NewCartStore(memory.NewKV(), logger.NewTestLogger())
		ctx := usecase.WithStore(context.Background(), store)

		got, err := usecase.FromContext(ctx)
		require.NoError(t, err)
		assert.Same(t, store, got)
		assert.Same(t, store, usecase.MustFromContext(ctx))
	})

	t.Run("missing store", func(t *testing.T) {
		_, err := usecase.FromContext(context.Background())
		assert.ErrorIs(t, err, domain.ErrStoreNotInitialized)
		assert.Contains(t, err.Error(), "no cart store in context")

		assert.PanicsWithError(t,
			"no cart store in context: "+domain.ErrStoreNotInitialized.Error(),
			func() { usecase.MustFromContext(context.Background()) },
		)
	})

	t.Run("nil store", func(t *testing.T) {
		ctx := usecase.WithStore(context.Background(), nil)
		_, err := usecase.FromContext(ctx)
		assert.ErrorIs(t, err, domain.ErrStoreNotInitialized)
	})
}

func TestCompletion_WaitHonoursContext(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, cartKey).Return("", domain.ErrRecordNotFound)
	block := make(chan struct{})
	kv.On("Set", mock.Anything, cartKey, mock.Anything).
		Run(func(mock.Arguments) { <-block }).
		Return(nil)

	store := newStore(t, kv)
	done := store.AddToCart(candidate("a", 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, done.Wait(ctx), context.Canceled)
	assert.NoError(t, done.Err())

	close(block)
	assert.NoError(t, wait(t, done))
}
