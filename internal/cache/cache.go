// Package cache provides the byte caches behind the geocoding lookups.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// NoExpiration stores an entry for the lifetime of the cache
const NoExpiration time.Duration = -1

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key from its parts
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "airwatch:" + namespace + ":v1:" + hex.EncodeToString(hash[:])
}
