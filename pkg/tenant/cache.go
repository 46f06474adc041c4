package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxCacheTTL bounds how long a resolution-key mapping may be trusted
// without a directory round-trip. Configured TTLs above this are clamped.
const MaxCacheTTL = 10 * time.Minute

// Entry is a cached resolution: the tenant a key mapped to, when the
// mapping was fetched, and when its lifecycle state was last confirmed.
// Lifecycle state sits outside the mapping's trust boundary: the resolver
// re-checks it once StateCheckedAt ages past the state TTL, so a cached
// mapping alone never keeps a suspended tenant resolvable.
type Entry struct {
	Tenant         Tenant    `json:"tenant"`
	CachedAt       time.Time `json:"cached_at"`
	StateCheckedAt time.Time `json:"state_checked_at"`
}

// Cache stores resolution entries keyed by Key.String(). Implementations
// must support tenant-wide invalidation so lifecycle writes can evict every
// key of a tenant synchronously instead of waiting out the TTL.
type Cache interface {
	// Get returns the entry for a key. A missing or expired key is a miss.
	Get(ctx context.Context, key string) (Entry, bool)

	// Set stores an entry for the given TTL.
	Set(ctx context.Context, key string, e Entry, ttl time.Duration)

	// Delete removes a single key.
	Delete(ctx context.Context, key string)

	// InvalidateTenant removes every key that maps to the tenant.
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error

	// Close releases any resources held by the cache.
	Close() error
}

// DefaultCacheSize is the default maximum number of entries in MemoryCache.
const DefaultCacheSize = 1000

// MemoryCache is the default single-process cache: TTL expiry, LRU eviction
// at a fixed capacity, and a reverse index for tenant-wide invalidation.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	byID    map[uuid.UUID]map[string]struct{}
	lru     []string
	maxSize int
	stop    chan struct{}
	done    chan struct{}
	closed  bool
}

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache with the default capacity and a
// janitor goroutine that sweeps expired entries once a minute.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithSize(DefaultCacheSize)
}

// NewMemoryCacheWithSize creates an in-memory cache with the given capacity.
func NewMemoryCacheWithSize(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}

	c := &MemoryCache{
		items:   make(map[string]memoryItem),
		byID:    make(map[uuid.UUID]map[string]struct{}),
		lru:     make([]string, 0, maxSize),
		maxSize: maxSize,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go c.janitor()

	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}
	if time.Now().After(item.expiresAt) {
		c.remove(key)
		return Entry{}, false
	}

	c.touch(key)
	return item.entry, true
}

func (c *MemoryCache) Set(_ context.Context, key string, e Entry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		if len(c.lru) > 0 {
			c.remove(c.lru[0])
		}
	}

	c.items[key] = memoryItem{entry: e, expiresAt: time.Now().Add(ttl)}
	keys, ok := c.byID[e.Tenant.ID]
	if !ok {
		keys = make(map[string]struct{})
		c.byID[e.Tenant.ID] = keys
	}
	keys[key] = struct{}{}
	c.touch(key)
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

func (c *MemoryCache) InvalidateTenant(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.byID[tenantID] {
		c.remove(key)
	}
	return nil
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	return nil
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			c.remove(key)
		}
	}
}

// remove deletes a key from the item map, reverse index, and LRU queue.
// Callers hold the lock.
func (c *MemoryCache) remove(key string) {
	item, ok := c.items[key]
	if !ok {
		return
	}
	delete(c.items, key)

	if keys, ok := c.byID[item.entry.Tenant.ID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byID, item.entry.Tenant.ID)
		}
	}

	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			return
		}
	}
}

// touch moves a key to the most-recently-used end. Callers hold the lock.
func (c *MemoryCache) touch(key string) {
	for i, k := range c.lru {
		if k == key {
			c.lru = append(c.lru[:i], c.lru[i+1:]...)
			break
		}
	}
	c.lru = append(c.lru, key)
}

// NoopCache never caches. Every resolution goes to the directory; useful in
// tests and for deployments where staleness is unacceptable.
type NoopCache struct{}

func NewNoopCache() NoopCache { return NoopCache{} }

func (NoopCache) Get(context.Context, string) (Entry, bool)         { return Entry{}, false }
func (NoopCache) Set(context.Context, string, Entry, time.Duration) {}
func (NoopCache) Delete(context.Context, string)                    {}
func (NoopCache) InvalidateTenant(context.Context, uuid.UUID) error { return nil }
func (NoopCache) Close() error                                      { return nil }
