package types

// StorageBackend is the raw key->entry store underneath a single tier.
// Backends only store; capacity accounting and eviction policy stay in
// the engine, so an out-of-process backend (redis, embedded database)
// can replace the in-memory one without touching promotion logic.
type StorageBackend interface {
	Get(key string) (*CacheEntry, bool)
	Put(key string, entry *CacheEntry) error
	Remove(key string) bool
	Keys() []string
	Len() int
	Clear() error
	Close() error
}

type BackendCreator func(config interface{}) (StorageBackend, error)
