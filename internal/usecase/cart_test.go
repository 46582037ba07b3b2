package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"gomarketplace/configs"
	"gomarketplace/internal/domain"
	"gomarketplace/internal/repository/memory"
	"gomarketplace/internal/usecase"
	"gomarketplace/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const cartKey = configs.DefaultCartKey

type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockKV) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Publish(ctx context.Context, event domain.CartEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recordingKV keeps every written value in order.
type recordingKV struct {
	*memory.KV
	mu     sync.Mutex
	writes []string
}

func (r *recordingKV) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.writes = append(r.writes, value)
	r.mu.Unlock()
	return r.KV.Set(ctx, key, value)
}

func newStore(t *testing.T, kv usecase.KVStore, opts ...usecase.Option) *usecase.CartStore {
	t.Helper()
	store := usecase.NewCartStore(kv, logger.NewTestLogger(), opts...)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = store.Close(ctx)
	})
	return store
}

func item(id string, price float64, qty int) domain.LineItem {
	return domain.LineItem{
		ID:       id,
		Title:    "Product " + id,
		ImageURL: "https://cdn.example.com/" + id + ".png",
		Price:    price,
		Quantity: qty,
	}
}

func candidate(id string, price float64) domain.Candidate {
	return domain.Candidate{
		ID:       id,
		Title:    "Product " + id,
		ImageURL: "https://cdn.example.com/" + id + ".png",
		Price:    price,
	}
}

func seed(t *testing.T, kv *memory.KV, items []domain.LineItem) {
	t.Helper()
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), cartKey, string(raw)))
}

func persisted(t *testing.T, kv usecase.KVStore) []domain.LineItem {
	t.Helper()
	raw, err := kv.Get(context.Background(), cartKey)
	require.NoError(t, err)
	var items []domain.LineItem
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	return items
}

func wait(t *testing.T, c *usecase.Completion) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.Wait(ctx)
}

func TestCartStore_InitializeHydratesInOrder(t *testing.T) {
	kv := memory.NewKV()
	want := []domain.LineItem{item("c", 3, 1), item("a", 1, 4), item("b", 2.5, 2)}
	seed(t, kv, want)

	store := newStore(t, kv)

	got, err := store.Products()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCartStore_InitializeFallsBackToEmpty(t *testing.T) {
	type testCase struct {
		name  string
		value string
	}

	testTable := []testCase{
		{name: "not json", value: "{{not json"},
		{name: "object instead of array", value: `{"id":"a"}`},
		{name: "wrong field types", value: `[{"id":1,"price":"free"}]`},
		{name: "empty id", value: `[{"id":"","title":"x","price":1,"quantity":1}]`},
		{name: "negative quantity", value: `[{"id":"a","title":"x","price":1,"quantity":-2}]`},
		{name: "negative price", value: `[{"id":"a","title":"x","price":-1,"quantity":1}]`},
		{name: "duplicate ids", value: `[{"id":"a","price":1,"quantity":1},{"id":"a","price":1,"quantity":2}]`},
		{name: "null", value: `null`},
	}

	for _, tc := range testTable {
		t.Run(tc.name, func(t *testing.T) {
			kv := memory.NewKV()
			require.NoError(t, kv.Set(context.Background(), cartKey, tc.value))

			store := newStore(t, kv)

			got, err := store.Products()
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.NotNil(t, got)
		})
	}

	t.Run("missing key", func(t *testing.T) {
		store := newStore(t, memory.NewKV())

		got, err := store.Products()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("read error", func(t *testing.T) {
		kv := new(MockKV)
		kv.On("Get", mock.Anything, cartKey).Return("", errors.New("connection refused"))

		store := newStore(t, kv)

		got, err := store.Products()
		require.NoError(t, err)
		assert.Empty(t, got)
		kv.AssertExpectations(t)
	})
}

func TestCartStore_InitializeIsIdempotent(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, cartKey).Return("[]", nil).Once()

	store := newStore(t, kv)
	require.NoError(t, store.Initialize(context.Background()))

	kv.AssertNumberOfCalls(t, "Get", 1)
}

func TestCartStore_AddToCart(t *testing.T) {
	t.Run("new item on empty cart", func(t *testing.T) {
		kv := memory.NewKV()
		store := newStore(t, kv)

		require.NoError(t, wait(t, store.AddToCart(candidate("p1", 9.99))))

		got, err := store.Products()
		require.NoError(t, err)
		assert.Equal(t, []domain.LineItem{item("p1", 9.99, 1)}, got)
		assert.Equal(t, got, persisted(t, kv))
	})

	t.Run("existing item is incremented", func(t *testing.T) {
		kv := memory.NewKV()
		seed(t, kv, []domain.LineItem{item("p1", 1, 1), item("p2", 2, 3)})
		store := newStore(t, kv)

		require.NoError(t, wait(t, store.AddToCart(candidate("p2", 2))))

		got, err := store.Products()
		require.NoError(t, err)
		assert.Equal(t, []domain.LineItem{item("p1", 1, 1), item("p2", 2, 4)}, got)
		assert.Equal(t, got, persisted(t, kv))
	})

	t.Run("invalid candidate is rejected", func(t *testing.T) {
		kv := new(MockKV)
		kv.On("Get", mock.Anything, cartKey).Return("", domain.ErrRecordNotFound)
		store := newStore(t, kv)

		err := wait(t, store.AddToCart(domain.Candidate{ID: "", Price: 1}))
		assert.ErrorIs(t, err, domain.ErrInvalidProduct)

		err = wait(t, store.AddToCart(domain.Candidate{ID: "p1", Price: -5}))
		assert.ErrorIs(t, err, domain.ErrInvalidProduct)

		got, err := store.Products()
		require.NoError(t, err)
		assert.Empty(t, got)
		kv.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCartStore_Increment(t *testing.T) {
	t.Run("existing item", func(t *testing.T) {
		kv := memory.NewKV()
		seed(t, kv, []domain.LineItem{item("p1", 1, 1)})
		store := newStore(t, kv)

		require.NoError(t, wait(t, store.Increment("p1")))

		got, _ := store.Products()
		assert.Equal(t, []domain.LineItem{item("p1", 1, 2)}, got)
		assert.Equal(t, got, persisted(t, kv))
	})

	t.Run("missing id is a no-op", func(t *testing.T) {
		kv := memory.NewKV()
		before := []domain.LineItem{item("p1", 1, 1), item("p2", 2, 2)}
		seed(t, kv, before)
		store := newStore(t, kv)

		require.NoError(t, wait(t, store.Increment("nope")))

		got, _ := store.Products()
		assert.Equal(t, before, got)
		assert.Equal(t, before, persisted(t, kv))
	})
}

func TestCartStore_Decrement(t *testing.T) {
	type testCase struct {
		name    string
		initial []domain.LineItem
		id      string
		want    []domain.LineItem
	}

	testTable := []testCase{
		{
			name:    "quantity above one",
			initial: []domain.LineItem{item("a", 1, 3)},
			id:      "a",
			want:    []domain.LineItem{item("a", 1, 2)},
		},
		{
			name:    "to zero removes only that item",
			initial: []domain.LineItem{item("a", 1, 2), item("b", 2, 1), item("c", 3, 5)},
			id:      "b",
			want:    []domain.LineItem{item("a", 1, 2), item("c", 3, 5)},
		},
		{
			name:    "last item",
			initial: []domain.LineItem{item("a", 1, 1)},
			id:      "a",
			want:    []domain.LineItem{},
		},
		{
			name:    "missing id",
			initial: []domain.LineItem{item("a", 1, 1)},
			id:      "z",
			want:    []domain.LineItem{item("a", 1, 1)},
		},
	}

	for _, tc := range testTable {
		t.Run(tc.name, func(t *testing.T) {
			kv := memory.NewKV()
			seed(t, kv, tc.initial)
			store := newStore(t, kv)

			require.NoError(t, wait(t, store.Decrement(tc.id)))

			got, err := store.Products()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want, persisted(t, kv))
		})
	}
}

func TestCartStore_RoundTrip(t *testing.T) {
	kv := memory.NewKV()
	first := newStore(t, kv)

	for i := 1; i <= 3; i++ {
		first.AddToCart(domain.CreateTestProduct(i))
	}
	first.AddToCart(domain.CreateTestProduct(2))
	first.Increment(domain.CreateTestProduct(3).ID)
	require.NoError(t, wait(t, first.Decrement(domain.CreateTestProduct(1).ID)))

	want, err := first.Products()
	require.NoError(t, err)

	second := newStore(t, kv)
	got, err := second.Products()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, got, 2)
}

func TestCartStore_NotInitialized(t *testing.T) {
	store := usecase.NewCartStore(memory.NewKV(), logger.NewTestLogger())

	_, err := store.Products()
	assert.ErrorIs(t, err, domain.ErrStoreNotInitialized)

	assert.ErrorIs(t, wait(t, store.AddToCart(candidate("p1", 1))), domain.ErrStoreNotInitialized)
	assert.ErrorIs(t, wait(t, store.Increment("p1")), domain.ErrStoreNotInitialized)
	assert.ErrorIs(t, wait(t, store.Decrement("p1")), domain.ErrStoreNotInitialized)

	_, _, err = store.Subscribe()
	assert.ErrorIs(t, err, domain.ErrStoreNotInitialized)

	var nilStore *usecase.CartStore
	_, err = nilStore.Products()
	assert.ErrorIs(t, err, domain.ErrStoreNotInitialized)
	assert.ErrorIs(t, nilStore.Initialize(context.Background()), domain.ErrStoreNotInitialized)
}

func TestCartStore_Closed(t *testing.T) {
	kv := memory.NewKV()
	store := usecase.NewCartStore(kv, logger.NewTestLogger())
	require.NoError(t, store.Initialize(context.Background()))

	done := store.AddToCart(candidate("p1", 1))
	require.NoError(t, store.Close(context.Background()))

	// queued writes are drained by Close
	select {
	case <-done.Done():
	default:
		t.Fatal("write not drained by Close")
	}
	assert.NoError(t, done.Err())
	assert.Len(t, persisted(t, kv), 1)

	assert.ErrorIs(t, wait(t, store.Increment("p1")), domain.ErrStoreClosed)
	assert.NoError(t, store.Close(context.Background()))
	assert.ErrorIs(t, store.Initialize(context.Background()), domain.ErrStoreClosed)
}

func TestCartStore_PersistFailure(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, cartKey).Return("", domain.ErrRecordNotFound)
	kv.On("Set", mock.Anything, cartKey, mock.Anything).Return(errors.New("disk full"))

	store := newStore(t, kv)

	err := wait(t, store.AddToCart(candidate("p1", 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	got, err := store.Products()
	require.NoError(t, err)
	assert.Equal(t, []domain.LineItem{item("p1", 1, 1)}, got)
}

func TestCartStore_RapidMutationsPersistFinalState(t *testing.T) {
	kv := &recordingKV{KV: memory.NewKV()}
	store := newStore(t, kv, usecase.WithQueueSize(4))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				p := domain.CreateTestProduct(i % 5)
				switch (g + i) % 3 {
				case 0, 1:
					store.AddToCart(p)
				default:
					store.Decrement(p.ID)
				}
			}
		}(g)
	}
	wg.Wait()

	want, err := store.Products()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, store.Close(ctx))

	assert.Equal(t, want, persisted(t, kv))

	kv.mu.Lock()
	defer kv.mu.Unlock()
	assert.Len(t, kv.writes, 8*25)
	raw, _ := json.Marshal(want)
	assert.Equal(t, string(raw), kv.writes[len(kv.writes)-1])
}

func TestCartStore_Subscribe(t *testing.T) {
	store := newStore(t, memory.NewKV())

	ch, cancel, err := store.Subscribe()
	require.NoError(t, err)

	assert.Empty(t, <-ch)

	store.AddToCart(candidate("a", 1))
	store.AddToCart(candidate("b", 2))
	store.AddToCart(candidate("a", 1))

	latest := <-ch
	assert.Equal(t, []domain.LineItem{item("a", 1, 2), item("b", 2, 1)}, latest)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected stale snapshot %v", extra)
	default:
	}

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	cancel()
}

func TestCartStore_TotalAndCount(t *testing.T) {
	kv := memory.NewKV()
	seed(t, kv, []domain.LineItem{item("a", 1.5, 2), item("b", 10, 3)})
	store := newStore(t, kv)

	total, err := store.Total()
	require.NoError(t, err)
	assert.InDelta(t, 33.0, total, 1e-9)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestCartStore_EventSink(t *testing.T) {
	sink := new(MockSink)
	sink.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.CartEvent) bool {
		return e.Op == domain.OpAdd && e.ProductID == "a" && e.Quantity == 1 && e.CartSize == 1
	})).Return(nil).Once()
	sink.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.CartEvent) bool {
		return e.Op == domain.OpDecrement && e.ProductID == "a" && e.Quantity == 0 && e.CartSize == 0
	})).Return(errors.New("broker down")).Once()

	store := newStore(t, memory.NewKV(), usecase.WithEventSink(sink))

	require.NoError(t, wait(t, store.AddToCart(candidate("a", 1))))
	require.NoError(t, wait(t, store.Decrement("a")))
	require.NoError(t, store.Close(context.Background()))

	sink.AssertExpectations(t)
}

// recordingSink keeps published events in order.
type recordingSink struct {
	mu      sync.Mutex
	release chan struct{}
	events  []domain.CartEvent
}

func (r *recordingSink) Publish(ctx context.Context, event domain.CartEvent) error {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func TestCartStore_SlowSinkDoesNotBlockMutations(t *testing.T) {
	sink := &recordingSink{release: make(chan struct{})}
	store := newStore(t, memory.NewKV(),
		usecase.WithEventSink(sink),
		usecase.WithWriteTimeout(2*time.Second),
	)

	start := time.Now()
	store.AddToCart(candidate("a", 1))
	store.Increment("a")
	require.NoError(t, wait(t, store.Decrement("a")))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(sink.release)
	require.NoError(t, store.Close(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 3)
	assert.Equal(t, []domain.Op{domain.OpAdd, domain.OpIncrement, domain.OpDecrement},
		[]domain.Op{sink.events[0].Op, sink.events[1].Op, sink.events[2].Op})
	assert.Equal(t, []int{1, 2, 1},
		[]int{sink.events[0].Quantity, sink.events[1].Quantity, sink.events[2].Quantity})
}

func TestCartStore_EventsFollowMutationOrder(t *testing.T) {
	sink := &recordingSink{}
	kv := &recordingKV{KV: memory.NewKV()}
	store := newStore(t, kv, usecase.WithEventSink(sink), usecase.WithQueueSize(256))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				store.AddToCart(candidate("a", 1))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, store.Close(context.Background()))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 100)
	for i, event := range sink.events {
		assert.Equal(t, i+1, event.Quantity)
	}
}

func TestCartStore_UnusualStringsSurviveHydration(t *testing.T) {
	kv := memory.NewKV()
	long := item("b", 2, 1)
	long.Title = strings.Repeat("x", 300)
	long.ImageURL = "https://cdn.example.com/" + strings.Repeat("y", 3000)
	spaced := item("sku 42", 3, 2)
	want := []domain.LineItem{item("a", 1, 1), long, spaced}
	seed(t, kv, want)

	store := newStore(t, kv)

	got, err := store.Products()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, wait(t, store.AddToCart(candidate("sku 42", 3))))
	got, _ = store.Products()
	assert.Equal(t, 3, got[2].Quantity)
}

func TestCartStore_NonFinitePriceRejected(t *testing.T) {
	kv := memory.NewKV()
	store := newStore(t, kv)

	for _, price := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		err := wait(t, store.AddToCart(candidate("bad", price)))
		assert.ErrorIs(t, err, domain.ErrInvalidProduct)
	}

	got, err := store.Products()
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, wait(t, store.AddToCart(candidate("ok", 1))))
	assert.Equal(t, []domain.LineItem{item("ok", 1, 1)}, persisted(t, kv))
}

func TestCartStore_WithConfig(t *testing.T) {
	kv := memory.NewKV()
	store := newStore(t, kv, usecase.WithConfig(configs.CartConfig{
		Backend:      configs.BackendMemory,
		Key:          "custom:cart",
		QueueSize:    1,
		WriteTimeout: time.Second,
	}))

	require.NoError(t, wait(t, store.AddToCart(candidate("a", 1))))

	_, err := kv.Get(context.Background(), cartKey)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	raw, err := kv.Get(context.Background(), "custom:cart")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","title":"Product a","image_url":"https://cdn.example.com/a.png","price":1,"quantity":1}]`, raw)
}
