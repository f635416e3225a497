package types

import (
	"time"
)

// PerformanceMonitor is passive instrumentation with no knowledge of
// cache internals. Timing pairs are correlated by caller-chosen ids.
type PerformanceMonitor interface {
	StartTiming(id string)
	EndTiming(id string, hit bool) time.Duration
	RecordMemoryUsage(bytes int64)
	RecordCompressionSavings(before, after int64)
	Metrics() PerformanceMetrics
	Reset()
}

type PerformanceMetrics struct {
	CacheHits          uint64        `json:"cache_hits"`
	CacheMisses        uint64        `json:"cache_misses"`
	HitRate            float64       `json:"hit_rate"`
	AvgLatency         time.Duration `json:"avg_latency"`
	Samples            uint64        `json:"samples"`
	PeakMemoryUsage    int64         `json:"peak_memory_usage"`
	CompressionSavings int64         `json:"compression_savings"`
}
