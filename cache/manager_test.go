package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-cache/metrics"
	"github.com/saiset-co/sai-cache/monitor"
	"github.com/saiset-co/sai-cache/types"
)

func TestNewCacheEngine(t *testing.T) {
	t.Parallel()

	t.Run("builds a plain engine without metrics", func(t *testing.T) {
		t.Parallel()

		engine, err := NewCacheEngine(context.Background(), testConfig(), testLogger(), nil, nil)
		require.NoError(t, err)
		require.IsType(t, &Engine{}, engine)
	})

	t.Run("unknown backend fails construction", func(t *testing.T) {
		t.Parallel()

		config := testConfig()
		config.L2.Backend = "tape-drive"

		_, err := NewCacheEngine(context.Background(), config, testLogger(), nil, nil)
		require.ErrorIs(t, err, types.ErrBackendUnknown)
	})

	t.Run("monitor observes engine traffic", func(t *testing.T) {
		t.Parallel()

		perfMonitor := monitor.New()
		engine, err := NewCacheEngine(context.Background(), testConfig(), testLogger(), nil, perfMonitor)
		require.NoError(t, err)

		require.NoError(t, engine.Set("k", make([]byte, 256), nil))
		require.Greater(t, perfMonitor.Metrics().PeakMemoryUsage, int64(0))
	})
}

func TestInstrumentedEngine(t *testing.T) {
	t.Parallel()

	newInstrumented := func(t *testing.T) (types.CacheEngine, *metrics.PrometheusMetrics) {
		t.Helper()

		prom := metrics.NewPrometheusMetrics(testLogger(), nil)
		engine, err := NewCacheEngine(context.Background(), testConfig(), testLogger(), prom, nil)
		require.NoError(t, err)
		return engine, prom
	}

	t.Run("operations are counted by result", func(t *testing.T) {
		t.Parallel()

		engine, prom := newInstrumented(t)

		require.NoError(t, engine.Set("k", 1, nil))
		_, _ = engine.Get("k")
		_, _ = engine.Get("absent")

		families, err := prom.Registry().Gather()
		require.NoError(t, err)

		counts := make(map[string]float64)
		for _, family := range families {
			if family.GetName() != "sai_cache_cache_operations_total" {
				continue
			}
			for _, metric := range family.GetMetric() {
				labels := make(map[string]string)
				for _, label := range metric.GetLabel() {
					labels[label.GetName()] = label.GetValue()
				}
				counts[labels["operation"]+"/"+labels["result"]] += metric.GetCounter().GetValue()
			}
		}

		require.Equal(t, float64(1), counts["set/success"])
		require.Equal(t, float64(1), counts["get/hit"])
		require.Equal(t, float64(1), counts["get/miss"])
	})

	t.Run("stats refresh the gauges", func(t *testing.T) {
		t.Parallel()

		engine, prom := newInstrumented(t)
		require.NoError(t, engine.Set("k", make([]byte, 256), nil))

		stats := engine.Stats()
		require.Equal(t, 1, stats.Entries)

		gauge := prom.Gauge("cache_entries", map[string]string{"engine": "default"})
		require.Equal(t, float64(1), gauge.Get())
	})

	t.Run("errors keep their identity through the decorator", func(t *testing.T) {
		t.Parallel()

		engine, _ := newInstrumented(t)
		require.ErrorIs(t, engine.Set("", 1, nil), types.ErrCacheKeyEmpty)
	})
}
