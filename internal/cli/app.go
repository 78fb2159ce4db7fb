package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ppiankov/airwatch/internal/cache"
	"github.com/ppiankov/airwatch/internal/dedup"
	"github.com/ppiankov/airwatch/internal/deliver"
	"github.com/ppiankov/airwatch/internal/dispatch"
	"github.com/ppiankov/airwatch/internal/extract"
	"github.com/ppiankov/airwatch/internal/feed"
	"github.com/ppiankov/airwatch/internal/geo"
	"github.com/ppiankov/airwatch/internal/llm"
	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/store"
	"github.com/ppiankov/airwatch/internal/validate"
	"github.com/ppiankov/airwatch/internal/worker"
)

// app holds the assembled pipeline of one command invocation
type app struct {
	dispatcher *dispatch.Dispatcher
	metrics    *dispatch.Metrics
	enricher   *geo.Enricher
	dedup      *dedup.Cache
	state      *store.SQLite // nil when cursors live in memory
}

// appOptions adjust assembly per command
type appOptions struct {
	source   feed.Source // Overrides the configured source
	stdout   io.Writer   // Destination of the stdout sink
	noState  bool        // Keep cursors in memory even when a state path is set
	registry prometheus.Registerer
}

func (a *app) Close() error {
	if a.state == nil {
		return nil
	}
	return a.state.Close()
}

// newApp wires every component named by cfg
func newApp(cfg *model.Config, log zerolog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if opts.registry == nil {
		opts.registry = prometheus.NewRegistry()
	}
	a.metrics = dispatch.NewMetrics(opts.registry)

	var cursors dispatch.CursorStore = dispatch.NewMemoryCursors()
	geoCache := cache.NewLayeredCache(cache.NewMemoryCache(cache.NoExpiration, 0), nil)
	if cfg.State.Path != "" && !opts.noState {
		a.state, err = store.Open(cfg.State.Path)
		if err != nil {
			return nil, err
		}
		cursors = a.state
		geoCache = cache.NewLayeredCache(cache.NewMemoryCache(cache.NoExpiration, 0), a.state.GeoCache())
	}

	source := opts.source
	if source == nil {
		source, err = feed.NewSource(feed.Options{
			Kind:       cfg.Feeds.Source,
			BaseURL:    cfg.Feeds.BaseURL,
			File:       cfg.Feeds.File,
			Timeout:    cfg.Feeds.Timeout,
			UserAgent:  cfg.HTTP.UserAgent,
			HTTPProxy:  cfg.HTTP.HTTPProxy,
			HTTPSProxy: cfg.HTTP.HTTPSProxy,
			NoProxy:    cfg.HTTP.NoProxy,
		}, log)
		if err != nil {
			return nil, err
		}
	}

	a.enricher, err = newEnricher(cfg, geoCache, a.metrics.GeoHooks(), log)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(cfg, opts.stdout, log)
	if err != nil {
		return nil, err
	}

	a.dedup = dedup.NewCache(cfg.Dedup.Interval)
	deps := dispatch.Dependencies{
		Source:    source,
		Extractor: extract.NewDefaultEngine(),
		Validator: validate.NewValidator(cfg.Filter.SkipWords),
		Dedup:     a.dedup,
		Enricher:  a.enricher,
		Sink:      sink,
		Cursors:   cursors,
		Hooks:     a.metrics.Hooks(),
		Logger:    log,
	}
	fallback, err := newFallback(cfg, log)
	if err != nil {
		return nil, err
	}
	if fallback != nil {
		deps.Fallback = fallback
	}

	a.dispatcher = dispatch.New(dispatch.Config{
		Feeds:           cfg.Feeds.Channels,
		SkipBacklog:     cfg.Feeds.SkipBacklog,
		DeliveryTimeout: deliveryBudget(cfg.Delivery),
	}, deps)
	return a, nil
}

// newFallback returns nil when no LLM provider is configured
func newFallback(cfg *model.Config, log zerolog.Logger) (*llm.Fallback, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	log.Info().Str("provider", provider.Name()).Msg("AI fallback enabled")
	return llm.NewFallback(provider, cfg.LLM.MinTextLength, log), nil
}

func newEnricher(cfg *model.Config, c *cache.LayeredCache, hooks geo.Hooks, log zerolog.Logger) (*geo.Enricher, error) {
	geocoder, err := geo.NewGeocoder(geo.Options{
		Provider:          cfg.Geo.Provider,
		BaseURL:           cfg.Geo.BaseURL,
		APIKey:            cfg.Geo.APIKey,
		CountryCode:       cfg.Geo.CountryCode,
		UserAgent:         cfg.HTTP.UserAgent,
		RequestsPerSecond: cfg.Geo.RequestsPerSecond,
		Burst:             cfg.Geo.Burst,
		HTTPProxy:         cfg.HTTP.HTTPProxy,
		HTTPSProxy:        cfg.HTTP.HTTPSProxy,
		NoProxy:           cfg.HTTP.NoProxy,
	})
	if err != nil {
		return nil, fmt.Errorf("geo: %w", err)
	}
	return geo.NewEnricher(geocoder, c, geo.Config{
		Workers:     cfg.Geo.Workers,
		Timeout:     cfg.Geo.Timeout,
		NegativeTTL: cfg.Geo.NegativeTTL,
	}, hooks, log), nil
}

func newSink(cfg *model.Config, stdout io.Writer, log zerolog.Logger) (deliver.Sink, error) {
	var sink deliver.Sink
	switch cfg.Delivery.Sink {
	case "stdout":
		if stdout == nil {
			stdout = os.Stdout
		}
		sink = deliver.NewWriterSink(stdout)
	case "telegram":
		bot, err := deliver.NewTelegramBot(deliver.BotOptions{
			Token:      cfg.Delivery.BotToken,
			ChatID:     cfg.Delivery.Destination,
			BaseURL:    cfg.Delivery.BaseURL,
			Timeout:    cfg.Delivery.Timeout,
			UserAgent:  cfg.HTTP.UserAgent,
			HTTPProxy:  cfg.HTTP.HTTPProxy,
			HTTPSProxy: cfg.HTTP.HTTPSProxy,
			NoProxy:    cfg.HTTP.NoProxy,
			Limiter:    worker.NewIntervalLimiter(cfg.Delivery.MinInterval),
		})
		if err != nil {
			return nil, err
		}
		sink = bot
	default:
		return nil, fmt.Errorf("unknown sink: %s (supported: telegram, stdout)", cfg.Delivery.Sink)
	}

	return deliver.NewRetrying(sink, deliver.RetryConfig{
		MaxTries:       cfg.Delivery.MaxRetries + 1,
		InitialBackoff: cfg.Delivery.InitialBackoff,
		MaxBackoff:     cfg.Delivery.MaxBackoff,
	}, log), nil
}

// deliveryBudget bounds one hand-off: every attempt at its timeout plus the
// longest possible wait between attempts
func deliveryBudget(cfg model.DeliveryConfig) time.Duration {
	tries := time.Duration(cfg.MaxRetries + 1)
	return tries * (cfg.Timeout + cfg.MaxBackoff)
}
