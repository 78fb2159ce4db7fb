package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Confidence tags how an event's fields were produced
type Confidence string

const (
	ConfidenceRule       Confidence = "rule-matched"
	ConfidenceAIFallback Confidence = "ai-fallback"
)

// Extraction is the partial event produced by the rule engine or the AI fallback
type Extraction struct {
	Threat     Threat     `json:"threat"`
	City       string     `json:"city,omitempty"`
	Region     string     `json:"region,omitempty"`
	Confidence Confidence `json:"confidence"`
	Rule       string     `json:"rule,omitempty"` // Name of the matching rule, empty for AI results
}

// Coordinates is a resolved latitude/longitude pair
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is one structured alert derived from a single message
type Event struct {
	ID          string       `json:"id"`
	Threat      Threat       `json:"threat"`
	City        string       `json:"city,omitempty"`
	Region      string       `json:"region,omitempty"`
	RawText     string       `json:"raw_text"`
	Feed        string       `json:"feed"`
	MessageID   int64        `json:"message_id"`
	MediaRef    string       `json:"media,omitempty"`
	Confidence  Confidence   `json:"confidence"`
	Rule        string       `json:"rule,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"` // Unset until enrichment succeeds
	Timestamp   time.Time    `json:"timestamp"`
}

// Fingerprint is the deduplication key derived from an event
type Fingerprint string

// GeoCacheEntry is one resolved location
type GeoCacheEntry struct {
	Key         string      `json:"key"`
	Coordinates Coordinates `json:"coordinates"`
	ResolvedAt  time.Time   `json:"resolved_at"`
}

// Materialize builds an Event from an extraction and the message it came from.
// The event timestamp is the message post time when known, otherwise now.
func Materialize(x Extraction, msg RawMessage, now time.Time) Event {
	ts := msg.ReceivedAt
	if ts.IsZero() {
		ts = now
	}
	return Event{
		ID:         ulid.Make().String(),
		Threat:     x.Threat,
		City:       x.City,
		Region:     x.Region,
		RawText:    msg.Text,
		Feed:       msg.Feed,
		MessageID:  msg.ID,
		MediaRef:   msg.MediaRef,
		Confidence: x.Confidence,
		Rule:       x.Rule,
		Timestamp:  ts,
	}
}

// HasLocation reports whether the event names a city or a region
func (e Event) HasLocation() bool {
	return e.City != "" || e.Region != ""
}
