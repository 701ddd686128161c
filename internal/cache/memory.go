package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the in-process tier. Entries are copied on the way in so a
// caller mutating its body slice cannot change what later readers see.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache creates a memory cache; expired entries are swept every sweepEvery
func NewMemoryCache(ttl, sweepEvery time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, sweepEvery)}
}

func (c *MemoryCache) Load(rawURL string) (*Payload, bool) {
	v, found := c.entries.Get(Key(rawURL))
	if !found {
		return nil, false
	}
	p, ok := v.(*Payload)
	return p, ok
}

func (c *MemoryCache) Store(rawURL string, p *Payload, ttl time.Duration) error {
	stored := *p
	stored.Body = append([]byte(nil), p.Body...)
	c.entries.Set(Key(rawURL), &stored, ttl)
	return nil
}

func (c *MemoryCache) Evict(rawURL string) error {
	c.entries.Delete(Key(rawURL))
	return nil
}

// Len reports the entry count, including expired entries not yet swept
func (c *MemoryCache) Len() int {
	return c.entries.ItemCount()
}
