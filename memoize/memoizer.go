package memoize

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-cache/types"
	"github.com/saiset-co/sai-cache/utils"
)

// trimFraction is the share of oldest entries dropped in one bulk trim
// when the mapping overflows. Bulk trimming keeps the common path O(1)
// instead of tracking a per-call victim.
const trimFraction = 0.2

type Func func(ctx context.Context, args ...interface{}) (interface{}, error)

type KeyGenerator func(args ...interface{}) (string, error)

type Options struct {
	KeyGenerator KeyGenerator
	TTL          time.Duration
	Dependencies []string
}

// Memoizer is a single-level function-result cache sharing the
// dependency-tag invalidation vocabulary of the tiered engine.
type Memoizer struct {
	config  *types.MemoizeConfig
	logger  types.Logger
	mu      sync.RWMutex
	entries map[string]*types.CacheEntry
}

func New(logger types.Logger, config *types.MemoizeConfig) *Memoizer {
	if config == nil {
		config = types.DefaultMemoizeConfig()
	}

	return &Memoizer{
		config:  config,
		logger:  logger,
		entries: make(map[string]*types.CacheEntry),
	}
}

// Wrap returns a function with the same signature as fn that serves
// repeated calls with equal arguments from cache within the TTL
// window. Each wrapped function gets its own key namespace.
func (m *Memoizer) Wrap(fn Func, opts *Options) Func {
	if opts == nil {
		opts = &Options{}
	}

	prefix := uuid.NewString()
	keyGen := opts.KeyGenerator
	if keyGen == nil {
		keyGen = defaultKeyGenerator
	}

	return func(ctx context.Context, args ...interface{}) (interface{}, error) {
		if fn == nil {
			return nil, types.ErrMemoizeFnIsNil
		}

		suffix, err := keyGen(args...)
		if err != nil {
			m.logger.Warn("Memoize key generation failed, bypassing cache", zap.Error(err))
			return fn(ctx, args...)
		}
		key := prefix + ":" + suffix

		if value, found := m.lookup(key); found {
			return value, nil
		}

		result, err := fn(ctx, args...)
		if err != nil {
			return nil, err
		}

		m.store(key, result, opts)
		return result, nil
	}
}

// Invalidate removes every entry matching the pattern; absent matches
// are a no-op.
func (m *Memoizer) Invalidate(pattern types.Pattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.entries {
		if pattern.Matches(key, entry.Dependencies) {
			delete(m.entries, key)
		}
	}

	return nil
}

func (m *Memoizer) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

func (m *Memoizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*types.CacheEntry)
}

func (m *Memoizer) lookup(key string) (interface{}, bool) {
	m.mu.RLock()
	entry, exists := m.entries[key]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if entry.Expired(time.Now()) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.Expired(time.Now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return entry.Value, true
}

func (m *Memoizer) store(key string, value interface{}, opts *Options) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = m.config.DefaultTTL
	}

	now := time.Now()
	entry := &types.CacheEntry{
		Key:       key,
		Value:     value,
		TTL:       ttl,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if len(opts.Dependencies) > 0 {
		entry.Dependencies = make([]string, len(opts.Dependencies))
		copy(entry.Dependencies, opts.Dependencies)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry

	if m.config.MaxEntries > 0 && len(m.entries) > m.config.MaxEntries {
		m.trimLocked()
	}
}

// trimLocked drops the oldest entries by creation time in one sweep.
func (m *Memoizer) trimLocked() {
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		return m.entries[keys[i]].CreatedAt.Before(m.entries[keys[j]].CreatedAt)
	})

	victims := int(float64(len(keys)) * trimFraction)
	if victims < 1 {
		victims = 1
	}

	for _, key := range keys[:victims] {
		delete(m.entries, key)
	}

	m.logger.Debug("Memoizer trimmed", zap.Int("removed", victims), zap.Int("remaining", len(m.entries)))
}

func defaultKeyGenerator(args ...interface{}) (string, error) {
	data, err := utils.Marshal(args)
	if err != nil {
		return "", types.WrapError(types.ErrMemoizeKeyGenFailed, err.Error())
	}
	return utils.BytesToString(data), nil
}
