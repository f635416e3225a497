package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/saiset-co/sai-cache/types"
)

type EngineState int32

const (
	EngineStateStopped EngineState = iota
	EngineStateStarting
	EngineStateRunning
	EngineStateStopping
)

// Engine orchestrates get/set/invalidate/warm/optimize across the
// three tiers. It is the sole owner of the tiers, the dependency graph
// and the access bookkeeping; engines are independent instances, one
// per logical namespace.
type Engine struct {
	ctx    context.Context
	cancel context.CancelFunc
	id     string
	config *types.EngineConfig
	logger types.Logger

	store   *tieredStore
	graph   *dependencyGraph
	policy  types.EvictionPolicy
	monitor types.PerformanceMonitor

	warming singleflight.Group
	cron    *cron.Cron

	mu          sync.Mutex
	hits        uint64
	misses      uint64
	evictions   uint64
	accessOps   uint64
	accessTime  time.Duration
	rawBytes    int64
	storedBytes int64

	state           atomic.Value
	shutdownTimeout time.Duration
}

func NewEngine(ctx context.Context, config *types.EngineConfig, logger types.Logger, backends map[types.Tier]types.StorageBackend, monitor types.PerformanceMonitor) (*Engine, error) {
	if config == nil {
		config = types.DefaultEngineConfig()
	}

	policy, err := newEvictionPolicy(config.EvictionPolicy)
	if err != nil {
		return nil, err
	}

	store := newTieredStore(config, backends)
	if !store.enabled(types.TierL1) && !store.enabled(types.TierL2) && !store.enabled(types.TierL3) {
		return nil, types.ErrNoTierEnabled
	}

	engineCtx, cancel := context.WithCancel(ctx)

	engine := &Engine{
		ctx:             engineCtx,
		cancel:          cancel,
		id:              uuid.NewString(),
		config:          config,
		logger:          logger,
		store:           store,
		graph:           newDependencyGraph(),
		policy:          policy,
		monitor:         monitor,
		shutdownTimeout: 10 * time.Second,
	}

	engine.state.Store(EngineStateStopped)

	return engine, nil
}

// Get probes L1, then L2, then L3, promoting the entry to the warmest
// enabled tier on a hit. Promotion is a move, never a duplication:
// the donor copy is removed in the same operation.
func (e *Engine) Get(key string) (interface{}, bool) {
	start := time.Now()

	e.mu.Lock()

	now := time.Now()
	for _, tier := range types.Tiers {
		if !e.store.enabled(tier) {
			continue
		}

		entry, found := e.store.get(tier, key)
		if !found {
			continue
		}

		if entry.Expired(now) {
			e.removeLocked(tier, key)
			break
		}

		entry.AccessCount++
		entry.LastAccessed = now
		e.policy.Touched(key)

		resident := e.promoteLocked(entry, tier)
		if err := e.store.touch(resident, key, entry); err != nil {
			e.logger.Warn("Failed to write back access metadata",
				zap.String("engine_id", e.id), zap.String("key", key), zap.Error(err))
		}

		value := entry.Value
		if entry.Compressed {
			raw, err := decompressValue(value)
			if err != nil {
				// A payload that cannot be decompressed is unservable:
				// drop it and count the access as a miss so the caller
				// recomputes instead of failing on every repeat.
				e.removeLocked(resident, key)
				e.misses++
				e.recordAccessLocked(time.Since(start))
				e.mu.Unlock()

				e.logger.Error("Failed to decompress cache entry, entry dropped",
					zap.String("engine_id", e.id), zap.String("key", key), zap.Error(err))
				return nil, false
			}
			value = raw
		}

		e.hits++
		e.recordAccessLocked(time.Since(start))
		e.mu.Unlock()

		return value, true
	}

	e.misses++
	e.recordAccessLocked(time.Since(start))
	e.mu.Unlock()

	return nil, false
}

// Set places the value in the requested tier, or picks one by size when
// no tier is pinned, evicting per policy until the entry fits. Capacity
// conditions never surface: a cache is always allowed to silently fail
// to cache.
func (e *Engine) Set(key string, value interface{}, opts *types.SetOptions) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}
	if opts == nil {
		opts = &types.SetOptions{}
	}
	if opts.Tier != 0 && e.config.TierConfig(opts.Tier) == nil {
		return types.Errorf(types.ErrTierUnknown, "tier: %d", opts.Tier)
	}

	size, err := entrySize(value)
	if err != nil {
		return err
	}

	rawSize := size
	storedValue := value
	compressed := false
	if e.config.CompressionEnabled && size >= e.config.CompressionThreshold {
		if data, isBytes := value.([]byte); isBytes {
			packed, packErr := compress(data)
			if packErr != nil {
				e.logger.Warn("Compression failed, storing uncompressed",
					zap.String("engine_id", e.id), zap.String("key", key), zap.Error(packErr))
			} else if int64(len(packed))+entryOverhead < size {
				storedValue = packed
				compressed = true
				size = int64(len(packed)) + entryOverhead
			}
		}
	}

	entry := newEntry(key, storedValue, size, opts, e.config.DefaultTTL)
	entry.Compressed = compressed

	e.mu.Lock()
	defer e.mu.Unlock()

	// Single-owner invariant: drop any previous copy first.
	if _, prevTier, found := e.store.find(key); found {
		e.removeLocked(prevTier, key)
	}

	tier, ok := e.placementLocked(opts.Tier, size)
	if !ok {
		e.logger.Warn("No enabled tier can hold entry, not cached",
			zap.String("engine_id", e.id), zap.String("key", key), zap.Int64("size", size))
		return nil
	}

	if !e.makeRoomLocked(tier, size) {
		e.logger.Warn("Entry exceeds tier capacity even after eviction, not cached",
			zap.String("engine_id", e.id), zap.String("key", key),
			zap.String("tier", tier.String()), zap.Int64("size", size))
		return nil
	}

	if err := e.store.put(tier, key, entry); err != nil {
		e.logger.Warn("Failed to store cache entry",
			zap.String("engine_id", e.id), zap.String("key", key),
			zap.String("tier", tier.String()), zap.Error(err))
		return nil
	}

	entry.Tier = tier
	e.graph.add(key, entry.Dependencies)
	e.policy.Added(key)

	if compressed {
		e.rawBytes += rawSize
		e.storedBytes += size
		if e.monitor != nil {
			e.monitor.RecordCompressionSavings(rawSize, size)
		}
	}
	if e.monitor != nil {
		e.monitor.RecordMemoryUsage(e.store.totalSize())
	}

	return nil
}

// Invalidate removes every matching entry from all tiers and the
// dependency graph before returning, so the removal is visible to any
// subsequent Get. Invalidating absent keys is a no-op.
func (e *Engine) Invalidate(pattern types.Pattern) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := e.invalidateLocked(pattern)
	if removed > 0 {
		e.logger.Debug("Cache entries invalidated",
			zap.String("engine_id", e.id), zap.Int("removed", removed))
	}

	return nil
}

func (e *Engine) invalidateLocked(pattern types.Pattern) int {
	removed := 0
	for _, tier := range types.Tiers {
		if !e.store.enabled(tier) {
			continue
		}
		for key, entry := range e.store.entries(tier) {
			if pattern.Matches(key, entry.Dependencies) {
				e.removeLocked(tier, key)
				removed++
			}
		}
	}
	return removed
}

// WarmCache populates the given keys via the injected provider,
// skipping resident ones. A failing key is logged and skipped without
// aborting the batch; overlapping warms for one key are coalesced so
// the provider runs at most once per key during the overlap.
func (e *Engine) WarmCache(ctx context.Context, keys []string, provider types.WarmProvider) (*types.WarmReport, error) {
	if provider == nil {
		return nil, types.ErrWarmingProviderIsNil
	}
	if !e.config.WarmingEnabled {
		return nil, types.ErrWarmingDisabled
	}

	report := &types.WarmReport{Failed: make(map[string]error)}

	for _, key := range keys {
		if key == "" {
			continue
		}

		if e.resident(key) {
			report.Skipped = append(report.Skipped, key)
			continue
		}

		_, err, _ := e.warming.Do(key, func() (interface{}, error) {
			value, err := provider(ctx, key)
			if err != nil {
				return nil, err
			}
			return value, e.Set(key, value, nil)
		})
		if err != nil {
			e.logger.Warn("Cache warming failed for key",
				zap.String("engine_id", e.id), zap.String("key", key), zap.Error(err))
			report.Failed[key] = err
			continue
		}

		report.Warmed = append(report.Warmed, key)
	}

	return report, nil
}

func (e *Engine) resident(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, _, found := e.store.find(key)
	return found && !entry.Expired(time.Now())
}

// Optimize purges expired entries, promotes frequently accessed ones
// toward warmer tiers when headroom exists, and compresses oversized
// uncompressed payloads.
func (e *Engine) Optimize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.reconcile()

	now := time.Now()
	expired, promoted, packed := 0, 0, 0

	for _, tier := range types.Tiers {
		if !e.store.enabled(tier) {
			continue
		}
		for key, entry := range e.store.entries(tier) {
			if entry.Expired(now) {
				e.removeLocked(tier, key)
				expired++
			}
		}
	}

	for _, tier := range []types.Tier{types.TierL2, types.TierL3} {
		if !e.store.enabled(tier) {
			continue
		}
		for key, entry := range e.store.entries(tier) {
			if entry.AccessCount < e.config.PromoteThreshold {
				continue
			}
			target, ok := e.warmestTierFor(tier)
			if !ok || target == tier {
				continue
			}
			max := e.store.maxSize(target)
			if max > 0 && e.store.size(target)+entry.Size > max {
				continue
			}
			if e.moveLocked(entry, tier, target, key) {
				promoted++
			}
		}
	}

	if e.config.CompressionEnabled {
		for _, tier := range types.Tiers {
			if !e.store.enabled(tier) {
				continue
			}
			for key, entry := range e.store.entries(tier) {
				if entry.Compressed || entry.Size < e.config.CompressionThreshold {
					continue
				}
				data, isBytes := entry.Value.([]byte)
				if !isBytes {
					continue
				}
				result, err := compress(data)
				if err != nil || int64(len(result))+entryOverhead >= entry.Size {
					continue
				}

				// Remove before mutating: the backend may hand out the
				// same entry pointer, so shrinking Size first would
				// corrupt put's replacement accounting and leave a
				// phantom footprint in the tier aggregate.
				rawSize := entry.Size
				if !e.store.remove(tier, key) {
					continue
				}
				entry.Value = result
				entry.Compressed = true
				entry.Size = int64(len(result)) + entryOverhead
				if err := e.store.put(tier, key, entry); err != nil {
					entry.Value = data
					entry.Compressed = false
					entry.Size = rawSize
					if restoreErr := e.store.put(tier, key, entry); restoreErr != nil {
						e.graph.remove(key)
						e.policy.Removed(key)
						e.logger.Error("Entry lost during compression",
							zap.String("engine_id", e.id), zap.String("key", key), zap.Error(restoreErr))
					}
					continue
				}
				e.rawBytes += rawSize
				e.storedBytes += entry.Size
				if e.monitor != nil {
					e.monitor.RecordCompressionSavings(rawSize, entry.Size)
				}
				packed++
			}
		}
	}

	if expired > 0 || promoted > 0 || packed > 0 {
		e.logger.Debug("Cache optimization completed",
			zap.String("engine_id", e.id),
			zap.Int("expired", expired),
			zap.Int("promoted", promoted),
			zap.Int("compressed", packed))
	}

	return nil
}

func (e *Engine) Stats() types.CacheStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := types.CacheStats{
		Hits:        e.hits,
		Misses:      e.misses,
		Evictions:   e.evictions,
		Entries:     e.store.count(),
		TotalSize:   e.store.totalSize(),
		HotTierSize: e.store.size(types.TierL1),
	}

	if total := e.hits + e.misses; total > 0 {
		stats.HitRate = float64(e.hits) / float64(total)
	}
	if e.accessOps > 0 {
		stats.AvgAccessLatency = e.accessTime / time.Duration(e.accessOps)
	}
	if e.rawBytes > 0 {
		stats.CompressionRatio = float64(e.storedBytes) / float64(e.rawBytes)
	}

	return stats
}

// Reset clears all tiers, the dependency graph and the access
// bookkeeping as one step.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.clear()
	e.graph.clear()
	e.policy.Reset()

	e.hits, e.misses, e.evictions = 0, 0, 0
	e.accessOps, e.accessTime = 0, 0
	e.rawBytes, e.storedBytes = 0, 0
}

func (e *Engine) Start() error {
	if !e.transitionState(EngineStateStopped, EngineStateStarting) {
		return types.ErrEngineAlreadyRunning
	}

	defer func() {
		if e.getState() == EngineStateStarting {
			e.setState(EngineStateRunning)
		}
	}()

	if e.config.SweepSchedule != "" {
		e.cron = cron.New()
		_, err := e.cron.AddFunc(e.config.SweepSchedule, func() {
			if err := e.Optimize(); err != nil {
				e.logger.Error("Scheduled optimization failed",
					zap.String("engine_id", e.id), zap.Error(err))
			}
		})
		if err != nil {
			e.setState(EngineStateStopped)
			e.cron = nil
			return types.Errorf(types.ErrSweepScheduleInvalid, "schedule: %s", e.config.SweepSchedule)
		}
		e.cron.Start()
	}

	e.logger.Info("Cache engine started",
		zap.String("engine_id", e.id),
		zap.String("name", e.config.Name),
		zap.String("policy", e.policy.Name()))
	return nil
}

func (e *Engine) Stop() error {
	if !e.transitionState(EngineStateRunning, EngineStateStopping) {
		return types.ErrEngineNotRunning
	}

	defer func() {
		e.setState(EngineStateStopped)
	}()

	e.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), e.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if e.cron == nil {
			return nil
		}
		select {
		case <-e.cron.Stop().Done():
		case <-gCtx.Done():
			e.logger.Warn("Optimization sweep stop timeout", zap.String("engine_id", e.id))
		}
		return nil
	})

	g.Go(func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.store.close()
		return nil
	})

	if err := g.Wait(); err != nil {
		e.logger.Error("Error during cache engine shutdown",
			zap.String("engine_id", e.id), zap.Error(err))
	}

	e.logger.Info("Cache engine stopped", zap.String("engine_id", e.id))
	return nil
}

func (e *Engine) IsRunning() bool {
	return e.getState() == EngineStateRunning
}

// placementLocked resolves the storage tier: an explicit pin clamps to
// the nearest enabled tier, otherwise the entry size decides.
func (e *Engine) placementLocked(pinned types.Tier, size int64) (types.Tier, bool) {
	preferred := pinned
	if preferred == 0 {
		switch {
		case size <= e.config.SmallObjectMax:
			preferred = types.TierL1
		case size <= e.config.MediumObjectMax:
			preferred = types.TierL2
		default:
			preferred = types.TierL3
		}
	}

	for tier := preferred; tier <= types.TierL3; tier++ {
		if e.store.enabled(tier) {
			return tier, true
		}
	}
	for tier := preferred - 1; tier >= types.TierL1; tier-- {
		if e.store.enabled(tier) {
			return tier, true
		}
	}

	return 0, false
}

// makeRoomLocked evicts per policy until need bytes fit, or reports
// failure when the entry alone exceeds the ceiling or the policy runs
// out of candidates.
func (e *Engine) makeRoomLocked(tier types.Tier, need int64) bool {
	max := e.store.maxSize(tier)
	if max <= 0 {
		return true
	}
	if need > max {
		return false
	}

	for e.store.size(tier)+need > max {
		candidates := e.store.entries(tier)
		if len(candidates) == 0 {
			break
		}

		key, ok := e.policy.SelectVictim(tier, candidates)
		if !ok {
			return false
		}

		e.removeLocked(tier, key)
		e.evictions++
	}

	return e.store.size(tier)+need <= max
}

// promoteLocked moves a hit entry into the warmest enabled tier,
// evicting there as needed. When the entry alone cannot fit it stays
// where it is.
func (e *Engine) promoteLocked(entry *types.CacheEntry, from types.Tier) types.Tier {
	target, ok := e.warmestTierFor(from)
	if !ok || target == from {
		return from
	}

	if !e.makeRoomLocked(target, entry.Size) {
		e.logger.Debug("Promotion skipped, no room in warmer tier",
			zap.String("engine_id", e.id), zap.String("key", entry.Key),
			zap.String("tier", target.String()))
		return from
	}

	if e.moveLocked(entry, from, target, entry.Key) {
		return target
	}
	return from
}

func (e *Engine) warmestTierFor(from types.Tier) (types.Tier, bool) {
	for _, tier := range types.Tiers {
		if tier >= from {
			break
		}
		if e.store.enabled(tier) {
			return tier, true
		}
	}
	return from, e.store.enabled(from)
}

// moveLocked relocates an entry between tiers without touching the
// dependency graph; the donor copy is removed first so the entry never
// exists in two tiers at once.
func (e *Engine) moveLocked(entry *types.CacheEntry, from, to types.Tier, key string) bool {
	if !e.store.remove(from, key) {
		return false
	}
	if err := e.store.put(to, key, entry); err != nil {
		// Roll back so the entry is not lost.
		if restoreErr := e.store.put(from, key, entry); restoreErr != nil {
			e.graph.remove(key)
			e.policy.Removed(key)
			e.logger.Error("Entry lost during tier move",
				zap.String("engine_id", e.id), zap.String("key", key), zap.Error(restoreErr))
		}
		return false
	}
	entry.Tier = to
	return true
}

// removeLocked deletes an entry from its tier together with its
// dependency-graph node and policy bookkeeping.
func (e *Engine) removeLocked(tier types.Tier, key string) {
	e.store.remove(tier, key)
	e.graph.remove(key)
	e.policy.Removed(key)
}

func (e *Engine) recordAccessLocked(elapsed time.Duration) {
	e.accessOps++
	e.accessTime += elapsed
}

func (e *Engine) getState() EngineState {
	return e.state.Load().(EngineState)
}

func (e *Engine) setState(newState EngineState) bool {
	currentState := e.getState()
	return e.state.CompareAndSwap(currentState, newState)
}

func (e *Engine) transitionState(from, to EngineState) bool {
	return e.state.CompareAndSwap(from, to)
}
