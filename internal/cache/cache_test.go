package cache

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// mapCache is a minimal persistent layer for tests
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (m *mapCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.data[key]
	return v, ok
}

func (m *mapCache) Set(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapCache) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

func TestKey(t *testing.T) {
	a := Key("geo", "полтава", "полтавська обл.")
	b := Key("geo", "полтава", "полтавська обл.")
	c := Key("geo", "полтава", "")
	if a != b {
		t.Error("same parts should give the same key")
	}
	if a == c {
		t.Error("different parts should give different keys")
	}
	if !strings.HasPrefix(a, "airwatch:geo:v1:") {
		t.Errorf("unexpected key prefix: %s", a)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(NoExpiration, 0)
	_ = c.Set("forever", []byte("1"), NoExpiration)
	_ = c.Set("short", []byte("2"), 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("forever"); !ok {
		t.Error("entry without expiry should survive")
	}
	if _, ok := c.Get("short"); ok {
		t.Error("short-lived entry should have expired")
	}
}

func TestLayeredCache_PromotesPersistentHits(t *testing.T) {
	persistent := newMapCache()
	_ = persistent.Set("k", []byte("v"), NoExpiration)

	c := NewLayeredCache(NewMemoryCache(NoExpiration, 0), persistent)

	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("expected persistent hit, got %q %v", v, ok)
	}
	if v, ok := c.Get("k"); !ok || string(v) != "v" {
		t.Fatalf("expected memory hit, got %q %v", v, ok)
	}
	if persistent.gets != 1 {
		t.Errorf("expected one persistent read after promotion, got %d", persistent.gets)
	}
}

func TestLayeredCache_SetWritesBothLayers(t *testing.T) {
	persistent := newMapCache()
	c := NewLayeredCache(NewMemoryCache(NoExpiration, 0), persistent)

	if err := c.Set("k", []byte("v"), NoExpiration); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := persistent.data["k"]; !ok {
		t.Error("expected persistent layer write")
	}

	if err := c.SetMemory("m", []byte("x"), time.Minute); err != nil {
		t.Fatalf("SetMemory failed: %v", err)
	}
	if _, ok := persistent.data["m"]; ok {
		t.Error("SetMemory must not reach the persistent layer")
	}

	_ = c.Clear()
	if _, ok := c.Get("k"); ok {
		t.Error("expected Clear to empty both layers")
	}
}

func TestLayeredCache_MemoryOnly(t *testing.T) {
	c := NewLayeredCache(NewMemoryCache(NoExpiration, 0), nil)
	_ = c.Set("k", []byte("v"), NoExpiration)
	if _, ok := c.Get("k"); !ok {
		t.Error("expected memory-only hit")
	}
	if err := c.Delete("k"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}
