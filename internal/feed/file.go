package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/airwatch/internal/model"
)

// FileSource replays messages from a JSON Lines file. Each line is one
// model.RawMessage; the file is re-read on every poll so it can be appended
// to while the service runs.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the source name
func (s *FileSource) Name() string {
	return "file"
}

// Poll returns the feed's messages above since
func (s *FileSource) Poll(ctx context.Context, feed string, since int64) ([]model.RawMessage, error) {
	msgs, err := ReadMessages(s.path)
	if err != nil {
		return nil, err
	}

	known := false
	var mine []model.RawMessage
	for _, m := range msgs {
		if m.Feed != feed {
			continue
		}
		known = true
		mine = append(mine, m)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s not in %s", ErrUnknownFeed, feed, s.path)
	}
	return after(mine, since), ctx.Err()
}

// ReadMessages loads every message in a JSON Lines file. Blank lines are
// skipped; a malformed line fails the whole read with its line number.
func ReadMessages(path string) ([]model.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open messages: %w", err)
	}
	defer func() { _ = f.Close() }()

	var msgs []model.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var m model.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return msgs, nil
}
