package dispatch

import (
	"context"
	"sync"
)

// CursorStore remembers the last processed message of each feed
type CursorStore interface {
	Cursor(ctx context.Context, feed string) (int64, bool, error)
	SetCursor(ctx context.Context, feed string, id int64) error
}

// MemoryCursors is a CursorStore that lives for the process lifetime
type MemoryCursors struct {
	mu      sync.Mutex
	cursors map[string]int64
}

// NewMemoryCursors creates an empty cursor store
func NewMemoryCursors() *MemoryCursors {
	return &MemoryCursors{cursors: make(map[string]int64)}
}

// Cursor returns the cursor of feed and whether one was recorded
func (m *MemoryCursors) Cursor(_ context.Context, feed string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.cursors[feed]
	return id, ok, nil
}

// SetCursor records id for feed; cursors never move backwards
func (m *MemoryCursors) SetCursor(_ context.Context, feed string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.cursors[feed]; !ok || id > cur {
		m.cursors[feed] = id
	}
	return nil
}
