package types

// EvictionPolicy picks the entry to drop when a tier is over capacity.
// The engine calls the bookkeeping hooks under its own lock; policies
// never touch storage themselves.
type EvictionPolicy interface {
	Name() string
	// Added records a freshly stored key.
	Added(key string)
	// Touched records a cache hit.
	Touched(key string)
	// Removed forgets a key after eviction, invalidation or expiry.
	Removed(key string)
	// SelectVictim returns the least valuable key among candidates
	// resident in the tier, or false when the tier is empty or the
	// policy has no opinion.
	SelectVictim(tier Tier, candidates map[string]*CacheEntry) (string, bool)
	Reset()
}

const (
	PolicyLRU    = "lru"
	PolicyLFU    = "lfu"
	PolicyTTL    = "ttl"
	PolicyHybrid = "hybrid"
)
