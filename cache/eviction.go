package cache

import (
	"container/list"

	"github.com/saiset-co/sai-cache/types"
)

func newEvictionPolicy(name string) (types.EvictionPolicy, error) {
	switch name {
	case "", types.PolicyHybrid:
		return newHybridPolicy(), nil
	case types.PolicyLRU:
		return newLRUPolicy(), nil
	case types.PolicyLFU:
		return &lfuPolicy{}, nil
	case types.PolicyTTL:
		return &ttlPolicy{}, nil
	default:
		return nil, types.Errorf(types.ErrPolicyUnknown, "policy: %s", name)
	}
}

// lruPolicy keeps one global access-order list; stores append to the
// tail, hits move to the tail, so the front is the least recently
// touched key.
type lruPolicy struct {
	order *list.List
	items map[string]*list.Element
}

func newLRUPolicy() *lruPolicy {
	return &lruPolicy{
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (p *lruPolicy) Name() string { return types.PolicyLRU }

func (p *lruPolicy) Added(key string) {
	p.touch(key)
}

func (p *lruPolicy) Touched(key string) {
	p.touch(key)
}

func (p *lruPolicy) touch(key string) {
	if elem, exists := p.items[key]; exists {
		p.order.MoveToBack(elem)
		return
	}
	p.items[key] = p.order.PushBack(key)
}

func (p *lruPolicy) Removed(key string) {
	if elem, exists := p.items[key]; exists {
		p.order.Remove(elem)
		delete(p.items, key)
	}
}

func (p *lruPolicy) SelectVictim(tier types.Tier, candidates map[string]*types.CacheEntry) (string, bool) {
	for elem := p.order.Front(); elem != nil; elem = elem.Next() {
		key := elem.Value.(string)
		if _, resident := candidates[key]; resident {
			return key, true
		}
	}
	return "", false
}

func (p *lruPolicy) Reset() {
	p.order.Init()
	p.items = make(map[string]*list.Element)
}

// lfuPolicy needs no bookkeeping of its own; access counts live on the
// entries. Ties go to the oldest entry, then to the smallest key so
// selection is deterministic.
type lfuPolicy struct{}

func (p *lfuPolicy) Name() string { return types.PolicyLFU }
func (p *lfuPolicy) Added(key string) {}
func (p *lfuPolicy) Touched(key string) {}
func (p *lfuPolicy) Removed(key string) {}
func (p *lfuPolicy) Reset() {}

func (p *lfuPolicy) SelectVictim(tier types.Tier, candidates map[string]*types.CacheEntry) (string, bool) {
	var victimKey string
	var victim *types.CacheEntry

	for key, entry := range candidates {
		if victim == nil {
			victimKey, victim = key, entry
			continue
		}
		if entry.AccessCount < victim.AccessCount {
			victimKey, victim = key, entry
			continue
		}
		if entry.AccessCount == victim.AccessCount {
			if entry.CreatedAt.Before(victim.CreatedAt) ||
				(entry.CreatedAt.Equal(victim.CreatedAt) && key < victimKey) {
				victimKey, victim = key, entry
			}
		}
	}

	return victimKey, victim != nil
}

// ttlPolicy evicts the entry closest to its absolute expiry, ignoring
// access patterns entirely.
type ttlPolicy struct{}

func (p *ttlPolicy) Name() string { return types.PolicyTTL }
func (p *ttlPolicy) Added(key string) {}
func (p *ttlPolicy) Touched(key string) {}
func (p *ttlPolicy) Removed(key string) {}
func (p *ttlPolicy) Reset() {}

func (p *ttlPolicy) SelectVictim(tier types.Tier, candidates map[string]*types.CacheEntry) (string, bool) {
	var victimKey string
	var victim *types.CacheEntry

	for key, entry := range candidates {
		if victim == nil {
			victimKey, victim = key, entry
			continue
		}
		if entry.ExpiresAt.Before(victim.ExpiresAt) ||
			(entry.ExpiresAt.Equal(victim.ExpiresAt) && key < victimKey) {
			victimKey, victim = key, entry
		}
	}

	return victimKey, victim != nil
}

// hybridPolicy tries LRU first and falls back to LFU when the access
// order holds no candidate for the tier. Fixed priority, never a
// blended score.
type hybridPolicy struct {
	lru *lruPolicy
	lfu lfuPolicy
}

func newHybridPolicy() *hybridPolicy {
	return &hybridPolicy{lru: newLRUPolicy()}
}

func (p *hybridPolicy) Name() string { return types.PolicyHybrid }

func (p *hybridPolicy) Added(key string) { p.lru.Added(key) }
func (p *hybridPolicy) Touched(key string) { p.lru.Touched(key) }
func (p *hybridPolicy) Removed(key string) { p.lru.Removed(key) }
func (p *hybridPolicy) Reset() { p.lru.Reset() }

func (p *hybridPolicy) SelectVictim(tier types.Tier, candidates map[string]*types.CacheEntry) (string, bool) {
	if key, ok := p.lru.SelectVictim(tier, candidates); ok {
		return key, true
	}
	return p.lfu.SelectVictim(tier, candidates)
}
