package storage

import (
	"context"
	"sync"

	"github.com/absmach/dpsshare/pkg/errors"
)

type inMemoryStorage[T any] struct {
	mu   sync.RWMutex
	data map[string]T
}

func NewInMemoryStorage[T any]() Storage[T] {
	return &inMemoryStorage[T]{data: make(map[string]T)}
}

func (s *inMemoryStorage[T]) Get(_ context.Context, key string) (T, error) {
	var zero T
	if key == "" {
		return zero, errors.ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return zero, errors.ErrNotFound
	}

	return v, nil
}

func (s *inMemoryStorage[T]) Put(_ context.Context, key string, value T) error {
	if key == "" {
		return errors.ErrEmptyKey
	}

	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()

	return nil
}

func (s *inMemoryStorage[T]) Count(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.data)), nil
}
