package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

const dirPermission = 0o755

// BadgerStorage persists CBOR-encoded values under "<namespace>/<key>".
type BadgerStorage[T any] struct {
	db     *badger.DB
	prefix []byte
}

func NewBadgerStorage[T any](dir, namespace string) (*BadgerStorage[T], error) {
	if err := os.MkdirAll(dir, dirPermission); err != nil {
		return nil, errors.Join(ErrOpen, err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}

	return &BadgerStorage[T]{db: db, prefix: []byte(namespace + "/")}, nil
}

func (s *BadgerStorage[T]) Get(_ context.Context, key string) (T, error) {
	var v T
	if key == "" {
		return v, pkgerrors.ErrEmptyKey
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return pkgerrors.ErrNotFound
		case err != nil:
			return err
		}

		return item.Value(func(data []byte) error {
			if err := cbor.Unmarshal(data, &v); err != nil {
				return errors.Join(ErrCodec, err)
			}

			return nil
		})
	})

	return v, err
}

func (s *BadgerStorage[T]) Put(_ context.Context, key string, value T) error {
	if key == "" {
		return pkgerrors.ErrEmptyKey
	}
	data, err := cbor.Marshal(value)
	if err != nil {
		return errors.Join(ErrCodec, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), data)
	})
}

func (s *BadgerStorage[T]) Count(context.Context) (uint64, error) {
	var n uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count registry entries: %w", err)
	}

	return n, nil
}

func (s *BadgerStorage[T]) Close() error {
	return s.db.Close()
}

func (s *BadgerStorage[T]) key(k string) []byte {
	return append(append([]byte{}, s.prefix...), k...)
}
