package types

import (
	"context"
	"strings"
	"time"
)

type Tier int

const (
	TierL1 Tier = iota + 1
	TierL2
	TierL3
)

// Tiers lists every tier from hottest to coldest.
var Tiers = []Tier{TierL1, TierL2, TierL3}

func (t Tier) String() string {
	switch t {
	case TierL1:
		return "l1"
	case TierL2:
		return "l2"
	case TierL3:
		return "l3"
	default:
		return "unknown"
	}
}

// Warmer returns the next tier toward the caller, or false for L1.
func (t Tier) Warmer() (Tier, bool) {
	if t <= TierL1 || t > TierL3 {
		return 0, false
	}
	return t - 1, true
}

type CacheEngine interface {
	LifecycleManager
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, opts *SetOptions) error
	Invalidate(pattern Pattern) error
	WarmCache(ctx context.Context, keys []string, provider WarmProvider) (*WarmReport, error)
	Optimize() error
	Stats() CacheStats
	Reset()
}

type CacheEntry struct {
	Key          string            `json:"key"`
	Value        interface{}       `json:"value"`
	Compressed   bool              `json:"compressed"`
	TTL          time.Duration     `json:"ttl"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Dependencies []string          `json:"dependencies"`
	Metadata     map[string]string `json:"metadata"`
	AccessCount  uint64            `json:"access_count"`
	LastAccessed time.Time         `json:"last_accessed"`
	Size         int64             `json:"size"`
	Tier         Tier              `json:"tier"`
}

func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

type SetOptions struct {
	TTL          time.Duration
	Dependencies []string
	Metadata     map[string]string
	// Tier pins the entry to a tier; zero selects one by entry size.
	Tier Tier
}

// WarmProvider computes the value for a key that is not resident yet.
type WarmProvider func(ctx context.Context, key string) (interface{}, error)

type WarmReport struct {
	Warmed  []string         `json:"warmed"`
	Skipped []string         `json:"skipped"`
	Failed  map[string]error `json:"-"`
}

type CacheStats struct {
	Hits             uint64        `json:"hits"`
	Misses           uint64        `json:"misses"`
	Evictions        uint64        `json:"evictions"`
	Entries          int           `json:"entries"`
	TotalSize        int64         `json:"total_size"`
	HotTierSize      int64         `json:"hot_tier_size"`
	HitRate          float64       `json:"hit_rate"`
	AvgAccessLatency time.Duration `json:"avg_access_latency"`
	CompressionRatio float64       `json:"compression_ratio"`
}

// Invalidator is the slice of CacheEngine the config manager needs to
// drop derived entries when an upstream value changes.
type Invalidator interface {
	Invalidate(pattern Pattern) error
}

// Pattern selects cache entries for invalidation. Exactly one selector
// is set by the constructors below; a zero Pattern matches nothing.
type Pattern struct {
	Keys      []string
	Substring string
	TagFunc   func(tag string) bool
}

func PatternKeys(keys ...string) Pattern {
	return Pattern{Keys: keys}
}

// PatternSubstring matches entries whose key or any dependency tag
// contains s.
func PatternSubstring(s string) Pattern {
	return Pattern{Substring: s}
}

func PatternTags(fn func(tag string) bool) Pattern {
	return Pattern{TagFunc: fn}
}

func (p Pattern) Matches(key string, dependencies []string) bool {
	if len(p.Keys) > 0 {
		for _, k := range p.Keys {
			if k == key {
				return true
			}
		}
		return false
	}

	if p.Substring != "" {
		if strings.Contains(key, p.Substring) {
			return true
		}
		for _, dep := range dependencies {
			if strings.Contains(dep, p.Substring) {
				return true
			}
		}
		return false
	}

	if p.TagFunc != nil {
		for _, dep := range dependencies {
			if p.TagFunc(dep) {
				return true
			}
		}
	}

	return false
}
