// Package storage keeps the trusted authority registry. Round state is never
// stored.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage is a keyed store of values of one type.
type Storage[T any] interface {
	Get(ctx context.Context, key string) (T, error)
	// Put creates or replaces the value stored under key.
	Put(ctx context.Context, key string, value T) error
	Count(ctx context.Context) (uint64, error)
}

type Config struct {
	Type       string `env:"TYPE"        envDefault:"memory"`
	BadgerPath string `env:"BADGER_PATH" envDefault:"./data/authority"`
	// Namespace prefixes every badger key so several registries can share a directory.
	Namespace string `env:"NAMESPACE" envDefault:"facility"`
}

// New returns the store selected by cfg. The closer is nil for the in-memory store.
func New[T any](cfg Config) (Storage[T], io.Closer, error) {
	switch cfg.Type {
	case "memory", "":
		return NewInMemoryStorage[T](), nil, nil
	case "badger":
		s, err := NewBadgerStorage[T](cfg.BadgerPath, cfg.Namespace)
		if err != nil {
			return nil, nil, err
		}

		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupported, cfg.Type)
	}
}
