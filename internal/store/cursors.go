package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Cursor returns the last processed message id of feed. The second return
// value is false when the feed has never been polled.
func (s *SQLite) Cursor(ctx context.Context, feed string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT last_id FROM feed_cursors WHERE feed = ?`, feed).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading cursor %s: %w", feed, err)
	}
	return id, true, nil
}

// SetCursor records id as the last processed message of feed.
// Cursors never move backwards.
func (s *SQLite) SetCursor(ctx context.Context, feed string, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feed_cursors (feed, last_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(feed) DO UPDATE SET
			last_id = MAX(last_id, excluded.last_id),
			updated_at = excluded.updated_at`,
		feed, id, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing cursor %s: %w", feed, err)
	}
	return nil
}
