// Package dedup suppresses repeated reports of the same event across feeds.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/normalize"
)

// Cache remembers fingerprints for a fixed interval after they are first seen.
// Expired entries are evicted lazily on access; there is no background timer.
type Cache struct {
	mu       sync.Mutex
	seen     map[model.Fingerprint]time.Time
	interval time.Duration
}

// NewCache creates a cache with the given suppression interval
func NewCache(interval time.Duration) *Cache {
	return &Cache{
		seen:     make(map[model.Fingerprint]time.Time),
		interval: interval,
	}
}

// Accept records fp at now and reports whether it is new. It returns false
// when fp was first seen less than one interval before now. A repeat inside
// the window does not extend it.
func (c *Cache) Accept(fp model.Fingerprint, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked(now)

	if _, ok := c.seen[fp]; ok {
		return false
	}
	c.seen[fp] = now
	return true
}

// Forget removes fp so the next report of it is accepted again
func (c *Cache) Forget(fp model.Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, fp)
}

// Len returns the number of remembered fingerprints, including any that
// expired but have not been evicted yet
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// Interval returns the suppression window
func (c *Cache) Interval() time.Duration {
	return c.interval
}

func (c *Cache) evictLocked(now time.Time) {
	for fp, first := range c.seen {
		if now.Sub(first) >= c.interval {
			delete(c.seen, fp)
		}
	}
}

// Fingerprint derives the dedup key of an event from its threat category,
// normalized city and normalized region. Coordinates, feed and text are
// ignored, so the same event reported by different feeds collapses.
func Fingerprint(e model.Event) model.Fingerprint {
	key := string(e.Threat) + "|" + normalize.Key(e.City) + "|" + normalize.Key(normalize.Region(e.Region))
	hash := sha256.Sum256([]byte(key))
	return model.Fingerprint(hex.EncodeToString(hash[:16]))
}
