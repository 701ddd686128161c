package cache

import (
	"errors"
	"time"

	"github.com/ppiankov/reup/internal/model"
)

// memorySweepInterval is how often expired memory entries are dropped
const memorySweepInterval = 10 * time.Minute

// LayeredCache reads memory then disk. Disk hits are copied into memory
// with the memory tier's own ttl.
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache builds the memory+disk cache described by cfg
func NewLayeredCache(cfg model.CacheConfig) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(cfg.MemoryTTL, memorySweepInterval),
		disk:   NewDiskCache(cfg.Dir, cfg.DiskTTL),
	}
}

func (c *LayeredCache) Load(rawURL string) (*Payload, bool) {
	if p, ok := c.memory.Load(rawURL); ok {
		return p, true
	}
	p, ok := c.disk.Load(rawURL)
	if !ok {
		return nil, false
	}
	_ = c.memory.Store(rawURL, p, 0)
	return p, true
}

// Store writes both tiers; ttl applies to the disk tier, memory keeps its own
func (c *LayeredCache) Store(rawURL string, p *Payload, ttl time.Duration) error {
	_ = c.memory.Store(rawURL, p, 0)
	return c.disk.Store(rawURL, p, ttl)
}

func (c *LayeredCache) Evict(rawURL string) error {
	return errors.Join(c.memory.Evict(rawURL), c.disk.Evict(rawURL))
}
