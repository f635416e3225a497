package cache

import (
	"context"
	"time"

	"github.com/saiset-co/sai-cache/backend"
	"github.com/saiset-co/sai-cache/types"
)

// NewCacheEngine wires backends, policy and instrumentation into a
// ready engine. metrics and monitor are optional; passing nil skips
// the corresponding layer.
func NewCacheEngine(ctx context.Context, config *types.EngineConfig, logger types.Logger, metrics types.MetricsManager, monitor types.PerformanceMonitor) (types.CacheEngine, error) {
	if config == nil {
		config = types.DefaultEngineConfig()
	}

	backends := make(map[types.Tier]types.StorageBackend)
	for _, tier := range types.Tiers {
		tierConfig := config.TierConfig(tier)
		if tierConfig == nil || !tierConfig.Enabled {
			continue
		}

		b, err := backend.New(ctx, tierConfig.Backend, tierConfig.Config, logger)
		if err != nil {
			for _, opened := range backends {
				_ = opened.Close()
			}
			return nil, types.WrapError(err, "failed to create backend for tier "+tier.String())
		}
		backends[tier] = b
	}

	engine, err := NewEngine(ctx, config, logger, backends, monitor)
	if err != nil {
		for _, opened := range backends {
			_ = opened.Close()
		}
		return nil, err
	}

	if metrics == nil {
		return engine, nil
	}

	return newInstrumentedEngine(config.Name, logger, metrics, engine), nil
}

type instrumentedEngine struct {
	impl    types.CacheEngine
	name    string
	logger  types.Logger
	metrics types.MetricsManager
}

func newInstrumentedEngine(name string, logger types.Logger, metrics types.MetricsManager, impl types.CacheEngine) types.CacheEngine {
	return &instrumentedEngine{
		impl:    impl,
		name:    name,
		logger:  logger,
		metrics: metrics,
	}
}

func (ie *instrumentedEngine) Get(key string) (interface{}, bool) {
	start := time.Now()
	value, exists := ie.impl.Get(key)
	duration := time.Since(start)

	result := "miss"
	if exists {
		result = "hit"
	}

	ie.recordMetric("get", result, duration)
	return value, exists
}

func (ie *instrumentedEngine) Set(key string, value interface{}, opts *types.SetOptions) error {
	start := time.Now()
	err := ie.impl.Set(key, value, opts)
	duration := time.Since(start)

	ie.recordMetric("set", resultLabel(err), duration)
	return err
}

func (ie *instrumentedEngine) Invalidate(pattern types.Pattern) error {
	start := time.Now()
	err := ie.impl.Invalidate(pattern)
	duration := time.Since(start)

	ie.recordMetric("invalidate", resultLabel(err), duration)
	return err
}

func (ie *instrumentedEngine) WarmCache(ctx context.Context, keys []string, provider types.WarmProvider) (*types.WarmReport, error) {
	start := time.Now()
	report, err := ie.impl.WarmCache(ctx, keys, provider)
	duration := time.Since(start)

	ie.recordMetric("warm", resultLabel(err), duration)
	return report, err
}

func (ie *instrumentedEngine) Optimize() error {
	start := time.Now()
	err := ie.impl.Optimize()
	duration := time.Since(start)

	ie.recordMetric("optimize", resultLabel(err), duration)
	return err
}

func (ie *instrumentedEngine) Stats() types.CacheStats {
	stats := ie.impl.Stats()

	ie.metrics.Gauge("cache_entries", map[string]string{"engine": ie.name}).Set(float64(stats.Entries))
	ie.metrics.Gauge("cache_size_bytes", map[string]string{"engine": ie.name}).Set(float64(stats.TotalSize))
	ie.metrics.Gauge("cache_hot_tier_bytes", map[string]string{"engine": ie.name}).Set(float64(stats.HotTierSize))

	return stats
}

func (ie *instrumentedEngine) Reset() {
	ie.impl.Reset()
}

func (ie *instrumentedEngine) Start() error {
	start := time.Now()
	err := ie.impl.Start()
	ie.recordMetric("start", resultLabel(err), time.Since(start))
	return err
}

func (ie *instrumentedEngine) Stop() error {
	return ie.impl.Stop()
}

func (ie *instrumentedEngine) IsRunning() bool {
	return ie.impl.IsRunning()
}

func (ie *instrumentedEngine) recordMetric(operation, result string, duration time.Duration) {
	opCounter := ie.metrics.Counter("cache_operations_total", map[string]string{
		"engine":    ie.name,
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := ie.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"engine": ie.name, "operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
