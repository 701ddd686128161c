package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Payload is a complete response body kept for reuse
type Payload struct {
	Body        []byte    `json:"body"`
	ContentType string    `json:"content_type,omitempty"`
	StoredAt    time.Time `json:"stored_at"`
}

// Cache holds complete single-shot payloads by request URL.
// A zero ttl on Store means the implementation's default.
type Cache interface {
	Load(rawURL string) (*Payload, bool)
	Store(rawURL string, p *Payload, ttl time.Duration) error
	Evict(rawURL string) error
}

// Key is the storage key for rawURL; it is safe to use as a file name
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "payload-v1-" + hex.EncodeToString(sum[:])
}
