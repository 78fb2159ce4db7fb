package cache

import (
	"errors"
	"time"
)

// LayeredCache fronts a persistent cache with a memory cache.
// Reads promote persistent hits into memory; writes go to both layers.
type LayeredCache struct {
	memory     *MemoryCache
	persistent Cache
}

// NewLayeredCache creates a layered cache. persistent may be nil, in which
// case the cache is memory only.
func NewLayeredCache(memory *MemoryCache, persistent Cache) *LayeredCache {
	return &LayeredCache{
		memory:     memory,
		persistent: persistent,
	}
}

// Get checks memory first, then the persistent layer
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	if c.persistent == nil {
		return nil, false
	}
	if val, found := c.persistent.Get(key); found {
		_ = c.memory.Set(key, val, NoExpiration)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers. The memory write always happens; a
// persistent failure is returned to the caller.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	if c.persistent == nil {
		return nil
	}
	return c.persistent.Set(key, value, ttl)
}

// SetMemory stores a value in the memory layer only
func (c *LayeredCache) SetMemory(key string, value []byte, ttl time.Duration) error {
	return c.memory.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	errMem := c.memory.Delete(key)
	if c.persistent == nil {
		return errMem
	}
	return errors.Join(errMem, c.persistent.Delete(key))
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	errMem := c.memory.Clear()
	if c.persistent == nil {
		return errMem
	}
	return errors.Join(errMem, c.persistent.Clear())
}
