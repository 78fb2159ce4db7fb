package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GeoCache is the persistent layer of the geocoding cache
type GeoCache struct {
	s *SQLite
}

// GeoCache returns a cache view over the geo_cache table
func (s *SQLite) GeoCache() *GeoCache {
	return &GeoCache{s: s}
}

// Get returns the stored value for key unless it has expired
func (c *GeoCache) Get(key string) ([]byte, bool) {
	var value []byte
	var expiresAt sql.NullInt64
	err := c.s.db.QueryRowContext(context.Background(),
		`SELECT value, expires_at FROM geo_cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err != nil {
		return nil, false
	}
	if expiresAt.Valid && c.s.now().Unix() >= expiresAt.Int64 {
		return nil, false
	}
	return value, true
}

// Set stores value under key. A ttl <= 0 keeps it forever.
func (c *GeoCache) Set(key string, value []byte, ttl time.Duration) error {
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: c.s.now().Add(ttl).Unix(), Valid: true}
	}
	_, err := c.s.db.ExecContext(context.Background(), `
		INSERT INTO geo_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	return err
}

// Delete removes key
func (c *GeoCache) Delete(key string) error {
	_, err := c.s.db.ExecContext(context.Background(), `DELETE FROM geo_cache WHERE key = ?`, key)
	return err
}

// Clear removes every entry
func (c *GeoCache) Clear() error {
	_, err := c.s.db.ExecContext(context.Background(), `DELETE FROM geo_cache`)
	return err
}

// Len returns the number of stored entries
func (c *GeoCache) Len() (int, error) {
	var n int
	err := c.s.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM geo_cache`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return n, nil
}
