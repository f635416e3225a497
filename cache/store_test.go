package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-cache/backend"
	"github.com/saiset-co/sai-cache/types"
)

func newTestStore(t *testing.T, l1Max, l2Max, l3Max int64) *tieredStore {
	t.Helper()

	config := types.DefaultEngineConfig()
	config.L1 = &types.TierConfig{Enabled: l1Max != 0, MaxSize: l1Max, Backend: "memory"}
	config.L2 = &types.TierConfig{Enabled: l2Max != 0, MaxSize: l2Max, Backend: "memory"}
	config.L3 = &types.TierConfig{Enabled: l3Max != 0, MaxSize: l3Max, Backend: "memory"}

	backends := make(map[types.Tier]types.StorageBackend)
	for _, tier := range types.Tiers {
		if tierConfig := config.TierConfig(tier); tierConfig.Enabled {
			backends[tier] = backend.NewMemoryBackend()
		}
	}

	return newTieredStore(config, backends)
}

func TestTieredStorePut(t *testing.T) {
	t.Parallel()

	t.Run("tracks the aggregate footprint", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, 1024, 0, 0)
		require.NoError(t, store.put(types.TierL1, "a", &types.CacheEntry{Key: "a", Size: 100}))
		require.NoError(t, store.put(types.TierL1, "b", &types.CacheEntry{Key: "b", Size: 200}))
		require.Equal(t, int64(300), store.size(types.TierL1))
	})

	t.Run("replacement swaps the old footprint for the new", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, 1024, 0, 0)
		require.NoError(t, store.put(types.TierL1, "a", &types.CacheEntry{Key: "a", Size: 100}))
		require.NoError(t, store.put(types.TierL1, "a", &types.CacheEntry{Key: "a", Size: 400}))
		require.Equal(t, int64(400), store.size(types.TierL1))
	})

	t.Run("entry above the ceiling is rejected", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, 256, 0, 0)
		err := store.put(types.TierL1, "big", &types.CacheEntry{Key: "big", Size: 512})
		require.ErrorIs(t, err, types.ErrCapacityExceeded)
	})

	t.Run("disabled tier is rejected", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, 1024, 0, 0)
		err := store.put(types.TierL2, "a", &types.CacheEntry{Key: "a", Size: 10})
		require.ErrorIs(t, err, types.ErrTierDisabled)
	})

	t.Run("zero ceiling is unbounded", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t, -1, 0, 0)
		require.NoError(t, store.put(types.TierL1, "big", &types.CacheEntry{Key: "big", Size: 1 << 30}))
	})
}

func TestTieredStoreRemove(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1024, 0, 0)
	require.NoError(t, store.put(types.TierL1, "a", &types.CacheEntry{Key: "a", Size: 100}))

	require.True(t, store.remove(types.TierL1, "a"))
	require.Equal(t, int64(0), store.size(types.TierL1))

	require.False(t, store.remove(types.TierL1, "a"))
	require.False(t, store.remove(types.TierL2, "a"))
}

func TestTieredStoreFind(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1024, 1024, 1024)
	require.NoError(t, store.put(types.TierL3, "cold", &types.CacheEntry{Key: "cold", Size: 10}))
	require.NoError(t, store.put(types.TierL1, "hot", &types.CacheEntry{Key: "hot", Size: 10}))

	_, tier, found := store.find("cold")
	require.True(t, found)
	require.Equal(t, types.TierL3, tier)

	_, tier, found = store.find("hot")
	require.True(t, found)
	require.Equal(t, types.TierL1, tier)

	_, _, found = store.find("absent")
	require.False(t, found)
}

func TestTieredStoreReconcile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1024, 1024, 0)
	require.NoError(t, store.put(types.TierL1, "a", &types.CacheEntry{Key: "a", Size: 100}))
	require.NoError(t, store.put(types.TierL1, "b", &types.CacheEntry{Key: "b", Size: 200}))
	require.NoError(t, store.put(types.TierL2, "c", &types.CacheEntry{Key: "c", Size: 50}))

	// Drop an entry behind the store's back, the way an out-of-process
	// backend can. The aggregate goes stale until reconciled.
	store.tiers[types.TierL1].backend.Remove("b")
	require.Equal(t, int64(300), store.size(types.TierL1))

	store.reconcile()
	require.Equal(t, int64(100), store.size(types.TierL1))
	require.Equal(t, int64(50), store.size(types.TierL2))
	require.Equal(t, int64(150), store.totalSize())
}

func TestTieredStoreAggregates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1024, 1024, 0)
	require.NoError(t, store.put(types.TierL1, "a", &types.CacheEntry{Key: "a", Size: 100}))
	require.NoError(t, store.put(types.TierL2, "b", &types.CacheEntry{Key: "b", Size: 200}))

	require.Equal(t, int64(300), store.totalSize())
	require.Equal(t, 2, store.count())
	require.Len(t, store.entries(types.TierL1), 1)
	require.Nil(t, store.entries(types.TierL3))

	store.clear()
	require.Equal(t, int64(0), store.totalSize())
	require.Equal(t, 0, store.count())
}
