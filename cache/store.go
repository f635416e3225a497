package cache

import (
	"github.com/saiset-co/sai-cache/types"
)

// tieredStore owns the three capacity-bounded namespaces and keeps an
// incrementally maintained aggregate footprint per tier. Policy never
// lives here; the engine decides what to evict and when to promote.
type tieredStore struct {
	tiers map[types.Tier]*tierState
}

type tierState struct {
	config  *types.TierConfig
	backend types.StorageBackend
	size    int64
}

func newTieredStore(config *types.EngineConfig, backends map[types.Tier]types.StorageBackend) *tieredStore {
	store := &tieredStore{tiers: make(map[types.Tier]*tierState)}

	for _, tier := range types.Tiers {
		tierConfig := config.TierConfig(tier)
		if tierConfig == nil || !tierConfig.Enabled {
			continue
		}
		store.tiers[tier] = &tierState{
			config:  tierConfig,
			backend: backends[tier],
		}
	}

	return store
}

func (s *tieredStore) enabled(tier types.Tier) bool {
	_, exists := s.tiers[tier]
	return exists
}

func (s *tieredStore) maxSize(tier types.Tier) int64 {
	if state, exists := s.tiers[tier]; exists {
		return state.config.MaxSize
	}
	return 0
}

func (s *tieredStore) get(tier types.Tier, key string) (*types.CacheEntry, bool) {
	state, exists := s.tiers[tier]
	if !exists {
		return nil, false
	}
	return state.backend.Get(key)
}

// put stores an entry, replacing any previous copy under the same key.
// It fails only when the entry alone exceeds the tier ceiling; freeing
// room for smaller entries is the engine's job.
func (s *tieredStore) put(tier types.Tier, key string, entry *types.CacheEntry) error {
	state, exists := s.tiers[tier]
	if !exists {
		return types.Errorf(types.ErrTierDisabled, "tier: %s", tier)
	}

	if state.config.MaxSize > 0 && entry.Size > state.config.MaxSize {
		return types.Errorf(types.ErrCapacityExceeded,
			"tier: %s, entry: %d bytes, ceiling: %d bytes", tier, entry.Size, state.config.MaxSize)
	}

	if old, found := state.backend.Get(key); found {
		state.size -= old.Size
	}

	if err := state.backend.Put(key, entry); err != nil {
		return err
	}

	state.size += entry.Size
	return nil
}

// touch writes back refreshed access metadata without changing the
// aggregate footprint.
func (s *tieredStore) touch(tier types.Tier, key string, entry *types.CacheEntry) error {
	state, exists := s.tiers[tier]
	if !exists {
		return types.Errorf(types.ErrTierDisabled, "tier: %s", tier)
	}
	return state.backend.Put(key, entry)
}

func (s *tieredStore) remove(tier types.Tier, key string) bool {
	state, exists := s.tiers[tier]
	if !exists {
		return false
	}

	entry, found := state.backend.Get(key)
	if !found {
		return false
	}

	if state.backend.Remove(key) {
		state.size -= entry.Size
		return true
	}
	return false
}

// find probes tiers from hottest to coldest.
func (s *tieredStore) find(key string) (*types.CacheEntry, types.Tier, bool) {
	for _, tier := range types.Tiers {
		if entry, found := s.get(tier, key); found {
			return entry, tier, true
		}
	}
	return nil, 0, false
}

func (s *tieredStore) size(tier types.Tier) int64 {
	if state, exists := s.tiers[tier]; exists {
		return state.size
	}
	return 0
}

// reconcile recomputes each tier's aggregate footprint from the
// backing store. An out-of-process backend can lose entries outside
// the engine's control (a crashed process, an operator flush), and
// only the entries the backend still reports may count against the
// tier ceiling.
func (s *tieredStore) reconcile() {
	for _, state := range s.tiers {
		var total int64
		for _, key := range state.backend.Keys() {
			if entry, found := state.backend.Get(key); found {
				total += entry.Size
			}
		}
		state.size = total
	}
}

func (s *tieredStore) totalSize() int64 {
	var total int64
	for _, state := range s.tiers {
		total += state.size
	}
	return total
}

func (s *tieredStore) count() int {
	var total int
	for _, state := range s.tiers {
		total += state.backend.Len()
	}
	return total
}

func (s *tieredStore) entries(tier types.Tier) map[string]*types.CacheEntry {
	state, exists := s.tiers[tier]
	if !exists {
		return nil
	}

	keys := state.backend.Keys()
	result := make(map[string]*types.CacheEntry, len(keys))
	for _, key := range keys {
		if entry, found := state.backend.Get(key); found {
			result[key] = entry
		}
	}
	return result
}

func (s *tieredStore) clear() {
	for _, state := range s.tiers {
		_ = state.backend.Clear()
		state.size = 0
	}
}

func (s *tieredStore) close() {
	for _, state := range s.tiers {
		_ = state.backend.Close()
	}
}
