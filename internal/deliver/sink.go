// Package deliver hands formatted notifications to the output channel.
package deliver

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// Notification is one formatted payload
type Notification struct {
	Text     string
	MediaRef string
}

// Sink accepts notifications. Deliver reports success or failure per payload.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

// WriterSink prints notifications, one per line
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w, or stdout when w is nil
func NewWriterSink(w io.Writer) *WriterSink {
	if w == nil {
		w = os.Stdout
	}
	return &WriterSink{w: w}
}

// Name returns the sink name
func (s *WriterSink) Name() string {
	return "stdout"
}

// Deliver writes the notification text, followed by its media reference
func (s *WriterSink) Deliver(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	line := n.Text
	if n.MediaRef != "" {
		line += " [" + n.MediaRef + "]"
	}
	if _, err := fmt.Fprintln(s.w, line); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}
