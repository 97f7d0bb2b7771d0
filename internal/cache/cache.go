package cache

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"github.com/kjstillabower/weather-aggregation-service/internal/models"
	"github.com/kjstillabower/weather-aggregation-service/internal/observability"
)

// defaultTopKeys is how many popular keys Stats reports.
const defaultTopKeys = 5

// Cache is a TTL-bounded, capacity-bounded store of aggregated weather results
// keyed by normalized location. Entries expire TTL after insertion regardless
// of access pattern; capacity pressure evicts the least-recently-used entry.
// Every operation takes one exclusive critical section; each is O(1) apart
// from Stats.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int

	entries map[string]*list.Element
	order   *list.List // front = most recently used

	hits      uint64
	misses    uint64
	evictions uint64

	// freq counts requests per key independent of hit/miss, for the
	// most-requested report. Survives Clear.
	freq map[string]*keyUsage
}

type cacheEntry struct {
	key       string
	value     models.AggregatedWeather
	expiresAt time.Time
}

type keyUsage struct {
	count    uint64
	lastSeen time.Time
}

// New creates a Cache with the given TTL and maximum entry count.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		freq:    make(map[string]*keyUsage),
	}
}

// Get returns the cached value for key if present and not expired. An expired
// entry is evicted on access and counts as a miss. A hit marks the entry as
// most-recently-used. Every call increments the key's request frequency.
func (c *Cache) Get(key string) (models.AggregatedWeather, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.recordRequest(key, now)

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		observability.CacheMissesTotal.Inc()
		return models.AggregatedWeather{}, false
	}

	entry := el.Value.(*cacheEntry)
	if now.After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses++
		observability.CacheMissesTotal.Inc()
		return models.AggregatedWeather{}, false
	}

	c.order.MoveToFront(el)
	c.hits++
	observability.CacheHitsTotal.Inc()
	return entry.value, true
}

// Put inserts or replaces the entry for key with expiry now + TTL, evicting
// least-recently-used entries until the size bound holds.
func (c *Cache) Put(key string, value models.AggregatedWeather) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = now.Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{
		key:       key,
		value:     value,
		expiresAt: now.Add(c.ttl),
	})
	c.entries[key] = el

	for len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*cacheEntry)
		c.order.Remove(oldest)
		delete(c.entries, evicted.key)
		c.evictions++
		observability.CacheEvictionsTotal.Inc()
	}
}

// Clear removes all entries and returns how many were removed. Hit/miss
// counters and frequency tracking are kept.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	return removed
}

// Len returns the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a point-in-time statistics view including the most-requested
// keys (ties broken by most-recently-seen).
func (c *Cache) Stats() models.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	ratio := 0.0
	if total > 0 {
		ratio = float64(c.hits) / float64(total)
	}

	return models.CacheStats{
		Hits:          c.hits,
		Misses:        c.misses,
		TotalRequests: total,
		HitRatio:      ratio,
		CurrentSize:   len(c.entries),
		MaxSize:       c.maxSize,
		TTLSeconds:    int(c.ttl.Seconds()),
		Evictions:     c.evictions,
		PopularKeys:   c.topKeys(defaultTopKeys),
	}
}

func (c *Cache) recordRequest(key string, now time.Time) {
	u, ok := c.freq[key]
	if !ok {
		u = &keyUsage{}
		c.freq[key] = u
	}
	u.count++
	u.lastSeen = now
}

// topKeys must be called with the lock held.
func (c *Cache) topKeys(n int) []models.PopularKey {
	type ranked struct {
		models.PopularKey
		lastSeen time.Time
	}
	all := make([]ranked, 0, len(c.freq))
	for key, u := range c.freq {
		all = append(all, ranked{models.PopularKey{Key: key, Count: u.count}, u.lastSeen})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].lastSeen.After(all[j].lastSeen)
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make([]models.PopularKey, len(all))
	for i, r := range all {
		out[i] = r.PopularKey
	}
	return out
}
