package monitor

import (
	"sync"
	"time"

	"github.com/saiset-co/sai-cache/types"
)

// Monitor collects passive hit/miss, latency, memory and compression
// counters. It knows nothing about cache internals; callers correlate
// timing pairs with their own ids.
type Monitor struct {
	mu         sync.Mutex
	active     map[string]time.Time
	hits       uint64
	misses     uint64
	samples    uint64
	totalTime  time.Duration
	peakMemory int64
	savedBytes int64
}

func New() *Monitor {
	return &Monitor{
		active: make(map[string]time.Time),
	}
}

func (m *Monitor) StartTiming(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active[id] = time.Now()
}

// EndTiming closes a timing pair and folds the duration into the
// running averages. An unmatched id contributes zero duration.
func (m *Monitor) EndTiming(id string, hit bool) time.Duration {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var elapsed time.Duration
	if start, exists := m.active[id]; exists {
		elapsed = now.Sub(start)
		delete(m.active, id)
	}

	if hit {
		m.hits++
	} else {
		m.misses++
	}

	m.samples++
	m.totalTime += elapsed

	return elapsed
}

func (m *Monitor) RecordMemoryUsage(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bytes > m.peakMemory {
		m.peakMemory = bytes
	}
}

func (m *Monitor) RecordCompressionSavings(before, after int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if saved := before - after; saved > 0 {
		m.savedBytes += saved
	}
}

func (m *Monitor) Metrics() types.PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := types.PerformanceMetrics{
		CacheHits:          m.hits,
		CacheMisses:        m.misses,
		Samples:            m.samples,
		PeakMemoryUsage:    m.peakMemory,
		CompressionSavings: m.savedBytes,
	}

	if total := m.hits + m.misses; total > 0 {
		metrics.HitRate = float64(m.hits) / float64(total)
	}
	if m.samples > 0 {
		metrics.AvgLatency = m.totalTime / time.Duration(m.samples)
	}

	return metrics
}

func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active = make(map[string]time.Time)
	m.hits, m.misses, m.samples = 0, 0, 0
	m.totalTime = 0
	m.peakMemory = 0
	m.savedBytes = 0
}
