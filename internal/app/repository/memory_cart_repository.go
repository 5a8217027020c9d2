package repository

import (
	"context"
	"sync"
)

type memoryCartStateRepository struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemoryCartStateRepository keeps carts in process memory. Carts survive
// store reconstruction but not a server restart.
func NewMemoryCartStateRepository() CartStateRepository {
	return &memoryCartStateRepository{states: make(map[string][]byte)}
}

func (r *memoryCartStateRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payload, ok := r.states[key]
	if !ok {
		return nil, ErrCartStateNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (r *memoryCartStateRepository) Set(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[key] = append([]byte(nil), payload...)
	return nil
}

func (r *memoryCartStateRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, key)
	return nil
}
