// internal/cache/cache.go
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/rclookup/pkg/models"
)

// DefaultTTL applies when Set is called without a TTL
const DefaultTTL = 30 * time.Minute

// DefaultMaxEntries bounds the cache when no size is configured
const DefaultMaxEntries = 1024

// Cache stores extracted records keyed by normalized plate.
//
// Only successful lookups are cached; failures are always retried.
type Cache interface {
	// Get returns a copy of the cached record for q, if present and fresh
	Get(q models.PlateQuery) (models.Record, bool)

	// Set stores a record for q with the given TTL (DefaultTTL when <= 0)
	Set(q models.PlateQuery, rec models.Record, ttl time.Duration)

	// Delete removes q; missing keys are ignored
	Delete(q models.PlateQuery)

	// Clear removes every entry
	Clear()

	// Close stops background cleanup
	Close()
}

type cacheEntry struct {
	Record    models.Record
	ExpiresAt time.Time
	Key       models.PlateQuery
}

// MemoryCache is an in-memory LRU cache with per-entry expiry
type MemoryCache struct {
	store      map[models.PlateQuery]*list.Element
	lruList    *list.List
	mu         sync.Mutex
	maxEntries int
	ctx        context.Context
	cancel     context.CancelFunc
	hits       uint64
	misses     uint64
	now        func() time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries records
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &MemoryCache{
		store:      make(map[models.PlateQuery]*list.Element),
		lruList:    list.New(),
		maxEntries: maxEntries,
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}

	go c.cleanupExpired()

	return c
}

// Get returns a fresh copy of the cached record and marks it recently used
func (mc *MemoryCache) Get(q models.PlateQuery) (models.Record, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	element, ok := mc.store[q]
	if !ok {
		mc.misses++
		return nil, false
	}

	entry := element.Value.(*cacheEntry)
	if mc.now().After(entry.ExpiresAt) {
		mc.misses++
		mc.removeElement(element)
		return nil, false
	}

	mc.lruList.MoveToFront(element)
	mc.hits++

	return copyRecord(entry.Record), true
}

// Set stores rec for q, evicting the least recently used entry when full
func (mc *MemoryCache) Set(q models.PlateQuery, rec models.Record, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry := &cacheEntry{
		Record:    copyRecord(rec),
		ExpiresAt: mc.now().Add(ttl),
		Key:       q,
	}

	if element, ok := mc.store[q]; ok {
		element.Value = entry
		mc.lruList.MoveToFront(element)
		return
	}

	for mc.lruList.Len() >= mc.maxEntries {
		mc.evictLRU()
	}

	mc.store[q] = mc.lruList.PushFront(entry)
}

// Delete removes q from the cache
func (mc *MemoryCache) Delete(q models.PlateQuery) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, ok := mc.store[q]; ok {
		mc.removeElement(element)
	}
}

// Clear removes every entry and resets statistics
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store = make(map[models.PlateQuery]*list.Element)
	mc.lruList = list.New()
	mc.hits = 0
	mc.misses = 0
}

// Close stops the background cleanup goroutine
func (mc *MemoryCache) Close() {
	mc.cancel()
}

// Len returns the number of entries, including expired ones not yet swept
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lruList.Len()
}

// must be called with the lock held
func (mc *MemoryCache) removeElement(element *list.Element) {
	entry := element.Value.(*cacheEntry)
	mc.lruList.Remove(element)
	delete(mc.store, entry.Key)
}

// must be called with the lock held
func (mc *MemoryCache) evictLRU() {
	element := mc.lruList.Back()
	if element == nil {
		return
	}
	mc.removeElement(element)
	log.Debug().Str("plate", element.Value.(*cacheEntry).Key.String()).Msg("Evicted from cache (LRU)")
}

func (mc *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.sweep()
		case <-mc.ctx.Done():
			return
		}
	}
}

func (mc *MemoryCache) sweep() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	var next *list.Element
	for element := mc.lruList.Front(); element != nil; element = next {
		next = element.Next()
		if now.After(element.Value.(*cacheEntry).ExpiresAt) {
			mc.removeElement(element)
		}
	}
}

// Stats summarizes cache usage
type Stats struct {
	Entries int     `json:"entries"`
	Max     int     `json:"max_entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns cache statistics including hit rate
func (mc *MemoryCache) Stats() Stats {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := Stats{
		Entries: mc.lruList.Len(),
		Max:     mc.maxEntries,
		Hits:    mc.hits,
		Misses:  mc.misses,
	}
	if total := mc.hits + mc.misses; total > 0 {
		s.HitRate = float64(mc.hits) / float64(total) * 100
	}
	return s
}

func copyRecord(r models.Record) models.Record {
	out := make(models.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
