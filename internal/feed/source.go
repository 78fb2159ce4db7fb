// Package feed polls alert channels for messages newer than a cursor.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/airwatch/internal/model"
)

// ErrUnknownFeed is returned when a source does not serve the requested feed
var ErrUnknownFeed = errors.New("unknown feed")

// Source yields raw messages of one feed. Poll returns the messages with an
// ID above since in ascending ID order; polling the same cursor twice yields
// the same messages.
type Source interface {
	Name() string
	Poll(ctx context.Context, feed string, since int64) ([]model.RawMessage, error)
}

// Options configures source construction
type Options struct {
	Kind        string // "telegram" or "file"
	BaseURL     string
	File        string
	UserAgent   string
	HTTPProxy   string
	HTTPSProxy  string
	NoProxy     string
	MaxBytes    int64
	MaxAttempts int
	Timeout     time.Duration // Per-request HTTP timeout
}

// NewSource creates the configured source
func NewSource(opts Options, log zerolog.Logger) (Source, error) {
	switch opts.Kind {
	case "telegram", "":
		return NewTelegramWeb(opts, log), nil
	case "file":
		if opts.File == "" {
			return nil, fmt.Errorf("file source requires a path")
		}
		return NewFileSource(opts.File), nil
	default:
		return nil, fmt.Errorf("unknown feed source: %s (supported: telegram, file)", opts.Kind)
	}
}

// after keeps the messages with an ID above since, sorted ascending and
// without repeated IDs
func after(msgs []model.RawMessage, since int64) []model.RawMessage {
	out := make([]model.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ID > since {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	uniq := out[:0]
	for i, m := range out {
		if i > 0 && m.ID == out[i-1].ID {
			continue
		}
		uniq = append(uniq, m)
	}
	return uniq
}
