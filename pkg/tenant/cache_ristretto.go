package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
)

// RistrettoCache is an in-process L1 cache over dgraph-io/ristretto. It
// admits under memory pressure better than MemoryCache at high tenant
// counts; a side reverse index keeps tenant-wide invalidation exact even
// though ristretto itself has no scan.
type RistrettoCache struct {
	c *ristretto.Cache[string, Entry]

	mu   sync.Mutex
	byID map[uuid.UUID]map[string]struct{}
}

// NewRistrettoCache creates a ristretto-backed cache sized for roughly
// maxEntries resolution entries.
func NewRistrettoCache(maxEntries int64) (*RistrettoCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, Entry]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{
		c:    c,
		byID: make(map[uuid.UUID]map[string]struct{}),
	}, nil
}

func (c *RistrettoCache) Get(_ context.Context, key string) (Entry, bool) {
	return c.c.Get(key)
}

func (c *RistrettoCache) Set(_ context.Context, key string, e Entry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	keys, ok := c.byID[e.Tenant.ID]
	if !ok {
		keys = make(map[string]struct{})
		c.byID[e.Tenant.ID] = keys
	}
	keys[key] = struct{}{}
	c.mu.Unlock()

	// Every entry costs 1; MaxCost is an entry count, not bytes.
	c.c.SetWithTTL(key, e, 1, ttl)
	c.c.Wait()
}

func (c *RistrettoCache) Delete(_ context.Context, key string) {
	c.c.Del(key)
}

func (c *RistrettoCache) InvalidateTenant(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	keys := c.byID[tenantID]
	delete(c.byID, tenantID)
	c.mu.Unlock()

	for key := range keys {
		c.c.Del(key)
	}
	return nil
}

func (c *RistrettoCache) Close() error {
	c.c.Close()
	return nil
}
