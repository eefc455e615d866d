package app

import (
	"wlscope/internal/data/cache"
	"wlscope/internal/engine/findings"
	"wlscope/internal/engine/symbols"
	"wlscope/internal/shared/observability"
)

type cachedResult struct {
	hash     uint64
	table    *symbols.Table
	findings []findings.Finding
}

// resultCache remembers the unfiltered findings of each file key together
// with the hash of the content they were computed from.
type resultCache struct {
	lru *cache.LRU[string, cachedResult]
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		return nil
	}
	return &resultCache{lru: cache.NewLRU[string, cachedResult](capacity)}
}

func (c *resultCache) lookup(key string, hash uint64) (cachedResult, bool) {
	if c == nil {
		return cachedResult{}, false
	}
	entry, ok := c.lru.Get(key)
	if !ok || entry.hash != hash {
		observability.ResultCacheMissesTotal.Inc()
		return cachedResult{}, false
	}
	observability.ResultCacheHitsTotal.Inc()
	return entry, true
}

func (c *resultCache) store(key string, entry cachedResult) {
	if c == nil {
		return
	}
	c.lru.Put(key, entry)
}

func (c *resultCache) forget(key string) {
	if c == nil {
		return
	}
	c.lru.Evict(key)
}

func (c *resultCache) stats() cache.Stats {
	if c == nil {
		return cache.Stats{}
	}
	return c.lru.Stats()
}
