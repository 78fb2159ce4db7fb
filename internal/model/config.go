package model

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete runtime configuration
type Config struct {
	Feeds    FeedsConfig    `yaml:"feeds" mapstructure:"feeds"`
	Delivery DeliveryConfig `yaml:"delivery" mapstructure:"delivery"`
	Dedup    DedupConfig    `yaml:"dedup" mapstructure:"dedup"`
	Filter   FilterConfig   `yaml:"filter" mapstructure:"filter"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	State    StateConfig    `yaml:"state" mapstructure:"state"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
}

// FeedsConfig describes where inbound messages come from
type FeedsConfig struct {
	Source       string        `yaml:"source" mapstructure:"source"`               // "telegram" or "file"
	Channels     []string      `yaml:"channels" mapstructure:"channels"`           // Feed identifiers, polled in order
	File         string        `yaml:"file,omitempty" mapstructure:"file"`         // JSONL dump for the "file" source
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`           // Telegram web preview endpoint
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"` // Delay between polling cycles
	SkipBacklog  bool          `yaml:"skip_backlog" mapstructure:"skip_backlog"`   // Prime new feeds without processing history
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`             // Per-poll HTTP timeout
}

// DeliveryConfig describes the single output channel
type DeliveryConfig struct {
	Sink           string        `yaml:"sink" mapstructure:"sink"`                 // "telegram" or "stdout"
	Destination    string        `yaml:"destination" mapstructure:"destination"`   // Target chat id or @channel
	BotToken       string        `yaml:"bot_token,omitempty" mapstructure:"bot_token"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	MinInterval    time.Duration `yaml:"min_interval" mapstructure:"min_interval"` // Pause enforced between sends
}

// DedupConfig controls duplicate suppression
type DedupConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// FilterConfig controls event validation
type FilterConfig struct {
	SkipWords []string `yaml:"skip_words" mapstructure:"skip_words"`
}

// LLMConfig controls the AI fallback
type LLMConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "openai", "groq", "anthropic", "ollama" or "" (disabled)
	Model         string `yaml:"model" mapstructure:"model"`
	APIKey        string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL       string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout       int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MinTextLength int    `yaml:"min_text_length" mapstructure:"min_text_length"` // Shorter texts never reach the fallback
}

// GeoConfig controls coordinate enrichment
type GeoConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"` // "nominatim", "opencage" or "" (disabled)
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	CountryCode       string        `yaml:"country_code" mapstructure:"country_code"`
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per-lookup deadline
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	NegativeTTL       time.Duration `yaml:"negative_ttl" mapstructure:"negative_ttl"` // How long "not found" is remembered
}

// StateConfig controls persistence of cursors and the geo cache
type StateConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite file, empty keeps state in memory only
}

// LogConfig controls the root logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

// HTTPConfig holds settings shared by every outbound HTTP client
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultSkipWords are pseudo-locations and hedging qualifiers that never name a place
var DefaultSkipWords = []string{
	"над містом",
	"над селом",
	"містом",
	"селом",
	"невизначено",
	"орієнтовно",
	"приблизно",
	"невідомо",
	"уточнюється",
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Feeds: FeedsConfig{
			Source:       "telegram",
			Channels:     []string{"war_monitor", "kpszsu", "monitoring_ukraine"},
			BaseURL:      "https://t.me",
			PollInterval: 30 * time.Second,
			SkipBacklog:  true,
			Timeout:      15 * time.Second,
		},
		Delivery: DeliveryConfig{
			Sink:           "telegram",
			BaseURL:        "https://api.telegram.org",
			Timeout:        15 * time.Second,
			MaxRetries:     4,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			MinInterval:    500 * time.Millisecond,
		},
		Dedup: DedupConfig{
			Interval: 300 * time.Second,
		},
		Filter: FilterConfig{
			SkipWords: append([]string(nil), DefaultSkipWords...),
		},
		LLM: LLMConfig{
			Provider:      "", // Disabled by default
			Timeout:       5,
			MaxTokens:     200,
			MinTextLength: 20,
		},
		Geo: GeoConfig{
			Provider:          "nominatim",
			CountryCode:       "ua",
			Workers:           4,
			Timeout:           5 * time.Second,
			RequestsPerSecond: 1, // Nominatim usage policy
			Burst:             1,
			NegativeTTL:       time.Hour,
		},
		State: StateConfig{
			Path: "",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			UserAgent: "airwatch/0.1 (+https://github.com/ppiankov/airwatch)",
		},
	}
}

// Validate checks the settings that must be right before the service starts
func (c *Config) Validate() error {
	var errs []error

	switch c.Feeds.Source {
	case "telegram":
		if len(c.Feeds.Channels) == 0 {
			errs = append(errs, errors.New("feeds.channels: at least one channel is required"))
		}
	case "file":
		if c.Feeds.File == "" {
			errs = append(errs, errors.New("feeds.file: required for the file source"))
		}
	default:
		errs = append(errs, fmt.Errorf("feeds.source: unknown source %q (supported: telegram, file)", c.Feeds.Source))
	}
	if c.Feeds.PollInterval <= 0 {
		errs = append(errs, errors.New("feeds.poll_interval: must be positive"))
	}

	switch c.Delivery.Sink {
	case "telegram":
		if c.Delivery.Destination == "" {
			errs = append(errs, errors.New("delivery.destination: required for the telegram sink"))
		}
		if c.Delivery.BotToken == "" {
			errs = append(errs, errors.New("delivery.bot_token: required for the telegram sink"))
		}
	case "stdout":
	default:
		errs = append(errs, fmt.Errorf("delivery.sink: unknown sink %q (supported: telegram, stdout)", c.Delivery.Sink))
	}

	if c.Dedup.Interval <= 0 {
		errs = append(errs, errors.New("dedup.interval: must be positive"))
	}
	if c.Geo.Provider != "" && c.Geo.Workers <= 0 {
		errs = append(errs, errors.New("geo.workers: must be positive"))
	}

	return errors.Join(errs...)
}
