package storage_test

import (
	"context"
	"fmt"
	"testing"

	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID         string            `cbor:"1,keyasint"`
	Attributes map[string]string `cbor:"2,keyasint"`
}

func backends(t *testing.T) map[string]storage.Storage[record] {
	t.Helper()

	s, closer, err := storage.New[record](storage.Config{Type: "badger", BadgerPath: t.TempDir(), Namespace: "facility"})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, closer.Close()) })

	mem, memCloser, err := storage.New[record](storage.Config{Type: "memory"})
	require.NoError(t, err)
	assert.Nil(t, memCloser)

	return map[string]storage.Storage[record]{
		"memory": mem,
		"badger": s,
	}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r := record{ID: "facility_0", Attributes: map[string]string{"role": "hospital"}}

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			require.NoError(t, s.Put(ctx, r.ID, r))
			assert.ErrorIs(t, s.Put(ctx, "", r), pkgerrors.ErrEmptyKey)

			got, err := s.Get(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, r, got)

			_, err = s.Get(ctx, "missing")
			assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
			_, err = s.Get(ctx, "")
			assert.ErrorIs(t, err, pkgerrors.ErrEmptyKey)

			r.Attributes = map[string]string{"role": "hospital", "region": "north"}
			require.NoError(t, s.Put(ctx, r.ID, r))
			got, err = s.Get(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, "north", got.Attributes["region"])

			for i := 1; i < 5; i++ {
				id := fmt.Sprintf("facility_%d", i)
				require.NoError(t, s.Put(ctx, id, record{ID: id}))
			}
			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, uint64(5), n)
		})
	}
}

func TestBadgerReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := storage.NewBadgerStorage[record](dir, "facility")
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "facility_0", record{ID: "facility_0"}))
	require.NoError(t, s.Close())

	s, err = storage.NewBadgerStorage[record](dir, "facility")
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "facility_0")
	require.NoError(t, err)
	assert.Equal(t, "facility_0", got.ID)

	other, err := storage.NewBadgerStorage[record](t.TempDir(), "other")
	require.NoError(t, err)
	defer other.Close()
	n, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnsupportedType(t *testing.T) {
	_, _, err := storage.New[record](storage.Config{Type: "postgres"})
	assert.ErrorIs(t, err, storage.ErrUnsupported)
}
