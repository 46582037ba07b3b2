package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"gomarketplace/configs"
	"gomarketplace/internal/domain"
	"gomarketplace/pkg/prometheus"
)

const (
	defaultQueueSize    = 64
	defaultWriteTimeout = 5 * time.Second
)

// CartStore owns the cart state and mirrors every change to the KV store
// under a single key.
type CartStore struct {
	kv           KVStore
	sink         EventSink
	key          string
	queueSize    int
	writeTimeout time.Duration
	log          *slog.Logger

	mu          sync.Mutex
	items       []domain.LineItem
	initialized bool
	closed      bool
	w           *writer
	events      *emitter
	subs        map[int]chan []domain.LineItem
	nextSub     int
}

type Option func(*CartStore)

func WithKey(key string) Option {
	return func(s *CartStore) { s.key = key }
}

func WithQueueSize(n int) Option {
	return func(s *CartStore) { s.queueSize = n }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *CartStore) { s.writeTimeout = d }
}

func WithEventSink(sink EventSink) Option {
	return func(s *CartStore) { s.sink = sink }
}

// WithConfig applies the cart section of the application config.
func WithConfig(cfg configs.CartConfig) Option {
	return func(s *CartStore) {
		s.key = cfg.Key
		s.queueSize = cfg.QueueSize
		s.writeTimeout = cfg.WriteTimeout
	}
}

func NewCartStore(kv KVStore, log *slog.Logger, opts ...Option) *CartStore {
	s := &CartStore{
		kv:           kv,
		key:          configs.DefaultCartKey,
		queueSize:    defaultQueueSize,
		writeTimeout: defaultWriteTimeout,
		log:          log,
		items:        []domain.LineItem{},
		subs:         make(map[int]chan []domain.LineItem),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queueSize <= 0 {
		s.queueSize = defaultQueueSize
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultWriteTimeout
	}
	return s
}

// Initialize hydrates the cart from the KV store and starts the writer.
// Missing or unreadable data yields an empty cart without an error.
func (s *CartStore) Initialize(ctx context.Context) error {
	if s == nil {
		return domain.ErrStoreNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	if s.initialized {
		return nil
	}

	s.items = s.load(ctx)
	s.w = newWriter(s.kv, s.key, s.queueSize, s.writeTimeout, s.log)
	s.w.start()
	if s.sink != nil {
		s.events = newEmitter(s.sink, s.queueSize, s.writeTimeout, s.log)
		s.events.start()
	}
	s.initialized = true

	prometheus.CartItems.Set(float64(len(s.items)))
	s.log.Info("cart store initialized", "key", s.key, "items", len(s.items))
	return nil
}

func (s *CartStore) load(ctx context.Context) []domain.LineItem {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		s.log.Debug("no persisted cart, starting empty", "key", s.key)
		return []domain.LineItem{}
	}
	if err != nil {
		s.log.Warn("failed to read persisted cart, starting empty", "key", s.key, "error", err)
		return []domain.LineItem{}
	}

	var items []domain.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("malformed persisted cart, starting empty", "key", s.key, "error", err)
		return []domain.LineItem{}
	}
	if err := domain.ValidateCart(items); err != nil {
		s.log.Warn("invalid persisted cart, starting empty", "key", s.key, "error", err)
		return []domain.LineItem{}
	}
	if items == nil {
		items = []domain.LineItem{}
	}
	return items
}

// AddToCart appends the candidate with quantity 1, or increments the
// existing entry with the same id.
func (s *CartStore) AddToCart(candidate domain.Candidate) *Completion {
	if err := candidate.Validate(); err != nil {
		return completed(err)
	}
	return s.mutate(domain.OpAdd, candidate.ID, func(items []domain.LineItem) ([]domain.LineItem, int) {
		if i := indexOf(items, candidate.ID); i >= 0 {
			items[i].Quantity++
			return items, items[i].Quantity
		}
		return append(items, candidate.LineItem()), 1
	})
}

// Increment raises the quantity of the item with id. An unknown id leaves
// the cart unchanged, and the cart is persisted either way.
func (s *CartStore) Increment(id string) *Completion {
	return s.mutate(domain.OpIncrement, id, func(items []domain.LineItem) ([]domain.LineItem, int) {
		i := indexOf(items, id)
		if i < 0 {
			return items, 0
		}
		items[i].Quantity++
		return items, items[i].Quantity
	})
}

// Decrement lowers the quantity of the item with id and removes that entry
// when it reaches zero.
func (s *CartStore) Decrement(id string) *Completion {
	return s.mutate(domain.OpDecrement, id, func(items []domain.LineItem) ([]domain.LineItem, int) {
		i := indexOf(items, id)
		if i < 0 {
			return items, 0
		}
		items[i].Quantity--
		if items[i].Quantity <= 0 {
			return slices.Delete(items, i, i+1), 0
		}
		return items, items[i].Quantity
	})
}

func (s *CartStore) mutate(op domain.Op, id string, apply func([]domain.LineItem) ([]domain.LineItem, int)) *Completion {
	if s == nil {
		return completed(domain.ErrStoreNotInitialized)
	}

	s.mu.Lock()
	if err := s.usableLocked(); err != nil {
		s.mu.Unlock()
		return completed(err)
	}

	next, quantity := apply(slices.Clone(s.items))

	value, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return completed(fmt.Errorf("encode cart: %w", err))
	}
	s.items = next

	done := newCompletion()
	s.w.enqueue(writeJob{value: string(value), done: done})
	s.publishLocked(next)
	if s.events != nil {
		s.events.send(domain.NewCartEvent(op, id, quantity, len(next)))
	}
	s.mu.Unlock()

	prometheus.CartOperations.WithLabelValues(string(op)).Inc()
	prometheus.CartItems.Set(float64(len(next)))
	s.log.Debug("cart mutated", "op", op, "product_id", id, "quantity", quantity, "items", len(next))

	return done
}

func (s *CartStore) usableLocked() error {
	if s.closed {
		return domain.ErrStoreClosed
	}
	if !s.initialized {
		return domain.ErrStoreNotInitialized
	}
	return nil
}

// Products returns a copy of the cart.
func (s *CartStore) Products() ([]domain.LineItem, error) {
	if s == nil {
		return nil, domain.ErrStoreNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, domain.ErrStoreNotInitialized
	}
	return slices.Clone(s.items), nil
}

func (s *CartStore) Total() (float64, error) {
	items, err := s.Products()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total, nil
}

func (s *CartStore) Count() (int, error) {
	items, err := s.Products()
	if err != nil {
		return 0, err
	}
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count, nil
}

// Subscribe returns a channel that always holds the latest snapshot. The
// current cart is delivered immediately. The channel is closed by cancel or
// by Close.
func (s *CartStore) Subscribe() (<-chan []domain.LineItem, func(), error) {
	if s == nil {
		return nil, nil, domain.ErrStoreNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usableLocked(); err != nil {
		return nil, nil, err
	}

	id := s.nextSub
	s.nextSub++
	ch := make(chan []domain.LineItem, 1)
	ch <- slices.Clone(s.items)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel, nil
}

func (s *CartStore) publishLocked(snapshot []domain.LineItem) {
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- slices.Clone(snapshot)
	}
}

// Close rejects further mutations and waits for queued writes to finish.
func (s *CartStore) Close(ctx context.Context) error {
	if s == nil {
		return domain.ErrStoreNotInitialized
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	w, events := s.w, s.events
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	if err := w.stop(ctx); err != nil {
		return err
	}
	if events != nil {
		if err := events.stop(ctx); err != nil {
			return err
		}
	}
	s.log.Info("cart store closed", "key", s.key)
	return nil
}

func indexOf(items []domain.LineItem, id string) int {
	return slices.IndexFunc(items, func(item domain.LineItem) bool {
		return item.ID == id
	})
}
