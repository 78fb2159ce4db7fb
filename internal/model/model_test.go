package model

import (
	"strings"
	"testing"
	"time"
)

func TestParseThreat(t *testing.T) {
	tests := []struct {
		in   string
		want Threat
		ok   bool
	}{
		{"uav", ThreatUAV, true},
		{"  Shahed ", ThreatUAV, true},
		{"БПЛА", ThreatUAV, true},
		{"ракета", ThreatMissile, true},
		{"ballistic", ThreatBallistic, true},
		{"КАБ", ThreatKAB, true},
		{"unknown", ThreatUnknown, true},
		{"artillery", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseThreat(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseThreat(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestThreatValid(t *testing.T) {
	for _, th := range AllThreats {
		if !th.Valid() {
			t.Errorf("%q should be valid", th)
		}
	}
	if ThreatUnknown.Valid() {
		t.Error("unknown should not be valid")
	}
	if Threat("artillery").Valid() {
		t.Error("artillery should not be valid")
	}
}

func TestThreatLabel(t *testing.T) {
	if got := ThreatKAB.Label(); got != "kab" {
		t.Errorf("Label() = %q", got)
	}
	if got := Threat("").Label(); got != "unknown" {
		t.Errorf("empty Label() = %q", got)
	}
}

func TestMaterialize(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	x := Extraction{Threat: ThreatUAV, City: "Полтава", Region: "Полтавська обл.", Confidence: ConfidenceRule, Rule: "uav_course"}
	msg := RawMessage{Feed: "war_monitor", ID: 42, Text: "БПЛА курсом на Полтаву", MediaRef: "https://cdn.example/p.jpg"}

	ev := Materialize(x, msg, now)
	if ev.ID == "" {
		t.Error("event id not assigned")
	}
	if ev.Threat != ThreatUAV || ev.City != "Полтава" || ev.Region != "Полтавська обл." {
		t.Errorf("unexpected fields %+v", ev)
	}
	if ev.Feed != "war_monitor" || ev.MessageID != 42 || ev.RawText != msg.Text || ev.MediaRef != msg.MediaRef {
		t.Errorf("message fields not carried: %+v", ev)
	}
	if ev.Confidence != ConfidenceRule || ev.Rule != "uav_course" {
		t.Errorf("provenance not carried: %+v", ev)
	}
	if !ev.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, now)
	}
	if ev.Coordinates != nil {
		t.Error("coordinates set before enrichment")
	}

	posted := now.Add(-time.Minute)
	msg.ReceivedAt = posted
	if ev2 := Materialize(x, msg, now); !ev2.Timestamp.Equal(posted) {
		t.Errorf("Timestamp = %v, want post time %v", ev2.Timestamp, posted)
	}
	if ev2 := Materialize(x, msg, now); ev2.ID == ev.ID {
		t.Error("event ids should be unique")
	}
}

func TestHasLocation(t *testing.T) {
	if (Event{}).HasLocation() {
		t.Error("empty event has no location")
	}
	if !(Event{City: "Суми"}).HasLocation() || !(Event{Region: "Сумська обл."}).HasLocation() {
		t.Error("city or region alone is a location")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delivery.Destination = "@airwatch"
	cfg.Delivery.BotToken = "123:abc"
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config with credentials should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing bot token", func(c *Config) { c.Delivery.Destination = "@x" }, "delivery.bot_token"},
		{"missing destination", func(c *Config) { c.Delivery.BotToken = "t" }, "delivery.destination"},
		{"unknown sink", func(c *Config) { c.Delivery.Sink = "slack" }, "delivery.sink"},
		{"unknown source", func(c *Config) { c.Delivery.Sink = "stdout"; c.Feeds.Source = "rss" }, "feeds.source"},
		{"no channels", func(c *Config) { c.Delivery.Sink = "stdout"; c.Feeds.Channels = nil }, "feeds.channels"},
		{"file without path", func(c *Config) { c.Delivery.Sink = "stdout"; c.Feeds.Source = "file" }, "feeds.file"},
		{"zero dedup", func(c *Config) { c.Delivery.Sink = "stdout"; c.Dedup.Interval = 0 }, "dedup.interval"},
		{"zero poll interval", func(c *Config) { c.Delivery.Sink = "stdout"; c.Feeds.PollInterval = 0 }, "feeds.poll_interval"},
		{"no geo workers", func(c *Config) { c.Delivery.Sink = "stdout"; c.Geo.Workers = 0 }, "geo.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Delivery.Sink = "stdout"
	cfg.Geo.Provider = ""
	cfg.Geo.Workers = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled geo needs no workers: %v", err)
	}
}
