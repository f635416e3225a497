package backend

import (
	"sync"

	"github.com/saiset-co/sai-cache/types"
)

// MemoryBackend is the default in-process store. Entries are returned
// by reference so the engine can refresh access metadata in place.
type MemoryBackend struct {
	mu     sync.RWMutex
	data   map[string]*types.CacheEntry
	closed bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[string]*types.CacheEntry),
	}
}

func (m *MemoryBackend) Get(key string) (*types.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.data[key]
	return entry, exists
}

func (m *MemoryBackend) Put(key string, entry *types.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.ErrBackendClosed
	}

	m.data[key] = entry
	return nil
}

func (m *MemoryBackend) Remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return false
	}

	delete(m.data, key)
	return true
}

func (m *MemoryBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys
}

func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*types.CacheEntry)
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = make(map[string]*types.CacheEntry)
	return nil
}
