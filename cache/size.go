package cache

import (
	"time"

	"github.com/saiset-co/sai-cache/types"
	"github.com/saiset-co/sai-cache/utils"
)

const (
	MaxTTL     = 24 * time.Hour
	DefaultTTL = 1 * time.Hour

	// entryOverhead approximates the bookkeeping cost of an entry on
	// top of its payload. Footprints are reproducible for a given
	// value, not byte-exact.
	entryOverhead = 128
)

func entrySize(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return entryOverhead, nil
	case []byte:
		return int64(len(v)) + entryOverhead, nil
	case string:
		return int64(len(v)) + entryOverhead, nil
	default:
		data, err := utils.Marshal(value)
		if err != nil {
			return 0, types.WrapError(err, "failed to serialize value for size accounting")
		}
		return int64(len(data)) + entryOverhead, nil
	}
}

func clampTTL(ttl, defaultTTL time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	return ttl
}

func newEntry(key string, value interface{}, size int64, opts *types.SetOptions, defaultTTL time.Duration) *types.CacheEntry {
	now := time.Now()
	ttl := clampTTL(opts.TTL, defaultTTL)

	entry := &types.CacheEntry{
		Key:          key,
		Value:        value,
		TTL:          ttl,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		Size:         size,
		LastAccessed: now,
	}

	if len(opts.Dependencies) > 0 {
		entry.Dependencies = make([]string, len(opts.Dependencies))
		copy(entry.Dependencies, opts.Dependencies)
	}

	if len(opts.Metadata) > 0 {
		entry.Metadata = make(map[string]string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			entry.Metadata[k] = v
		}
	}

	return entry
}
