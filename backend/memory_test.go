package backend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-cache/backend"
	"github.com/saiset-co/sai-cache/logger"
	"github.com/saiset-co/sai-cache/types"
)

func TestMemoryBackend(t *testing.T) {
	t.Parallel()

	t.Run("put then get returns the same entry", func(t *testing.T) {
		t.Parallel()

		store := backend.NewMemoryBackend()
		entry := &types.CacheEntry{Key: "k", Value: 42, Size: 100}
		require.NoError(t, store.Put("k", entry))

		got, found := store.Get("k")
		require.True(t, found)
		require.Same(t, entry, got)
	})

	t.Run("remove reports whether the key existed", func(t *testing.T) {
		t.Parallel()

		store := backend.NewMemoryBackend()
		require.NoError(t, store.Put("k", &types.CacheEntry{Key: "k"}))

		require.True(t, store.Remove("k"))
		require.False(t, store.Remove("k"))
	})

	t.Run("keys and len track the contents", func(t *testing.T) {
		t.Parallel()

		store := backend.NewMemoryBackend()
		require.NoError(t, store.Put("a", &types.CacheEntry{Key: "a"}))
		require.NoError(t, store.Put("b", &types.CacheEntry{Key: "b"}))

		require.Equal(t, 2, store.Len())
		require.ElementsMatch(t, []string{"a", "b"}, store.Keys())

		require.NoError(t, store.Clear())
		require.Equal(t, 0, store.Len())
	})

	t.Run("closed backend rejects writes", func(t *testing.T) {
		t.Parallel()

		store := backend.NewMemoryBackend()
		require.NoError(t, store.Close())
		require.ErrorIs(t, store.Put("k", &types.CacheEntry{Key: "k"}), types.ErrBackendClosed)
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	log := logger.NewZapWrapper(zap.NewNop())

	t.Run("empty name defaults to memory", func(t *testing.T) {
		t.Parallel()

		store, err := backend.New(context.Background(), "", nil, log)
		require.NoError(t, err)
		require.IsType(t, &backend.MemoryBackend{}, store)
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := backend.New(context.Background(), "tape-drive", nil, log)
		require.ErrorIs(t, err, types.ErrBackendUnknown)
	})

	t.Run("registered custom backend wins", func(t *testing.T) {
		backend.Register("custom-memory", func(config interface{}) (types.StorageBackend, error) {
			return backend.NewMemoryBackend(), nil
		})

		store, err := backend.New(context.Background(), "custom-memory", nil, log)
		require.NoError(t, err)
		require.NotNil(t, store)
	})
}
