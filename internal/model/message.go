package model

import "time"

// RawMessage is one inbound message as read from a source feed
type RawMessage struct {
	Feed       string    `json:"feed"`            // Feed (channel) identifier
	ID         int64     `json:"id"`              // Monotonic per-feed message id
	Text       string    `json:"text"`            // Message body as posted
	MediaRef   string    `json:"media,omitempty"` // Optional attached image URL
	ReceivedAt time.Time `json:"time,omitempty"`  // Post time reported by the feed
}
