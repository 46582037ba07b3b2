package memory

import (
	"context"
	"sync"

	"gomarketplace/internal/domain"
)

// KV keeps values in process memory. It is the storage used by tests and by
// the "memory" backend.
type KV struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewKV() *KV {
	return &KV{m: make(map[string]string)}
}

func (s *KV) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.m[key]
	if !ok {
		return "", domain.ErrRecordNotFound
	}
	return v, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[key] = value
	return nil
}

func (s *KV) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
