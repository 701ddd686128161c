package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DiskCache persists payloads as one JSON file per URL so they survive
// between runs of the CLI
type DiskCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewDiskCache creates a disk cache rooted at dir
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{dir: dir, ttl: ttl, now: time.Now}
}

type diskEntry struct {
	URL       string    `json:"url"`
	Payload   Payload   `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *DiskCache) Load(rawURL string) (*Payload, bool) {
	path := c.path(rawURL)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry diskEntry
	// An unreadable, expired or colliding entry is a miss and is removed
	if err := json.Unmarshal(data, &entry); err != nil || entry.URL != rawURL || !c.now().Before(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}
	return &entry.Payload, true
}

// Store writes the entry to a temp file and renames it into place,
// so a concurrent reader never sees a half-written entry
func (c *DiskCache) Store(rawURL string, p *Payload, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}
	data, err := json.Marshal(diskEntry{URL: rawURL, Payload: *p, ExpiresAt: c.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry: %w", err)
	}
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), c.path(rawURL))
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", werr)
	}
	return nil
}

func (c *DiskCache) Evict(rawURL string) error {
	if err := os.Remove(c.path(rawURL)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("evict cache entry: %w", err)
	}
	return nil
}

func (c *DiskCache) path(rawURL string) string {
	return filepath.Join(c.dir, Key(rawURL)+".json")
}
