package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/airwatch/internal/cache"
	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/worker"
)

// Lookup outcomes reported through Hooks
const (
	OutcomeHit      = "hit"
	OutcomeResolved = "resolved"
	OutcomeNotFound = "not_found"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

// Hooks receive enrichment observations. Nil fields are skipped.
type Hooks struct {
	OnLookup func(outcome string)
}

// Config configures an Enricher
type Config struct {
	Workers     int           // Concurrent lookups per batch
	Timeout     time.Duration // Deadline of a single lookup
	NegativeTTL time.Duration // How long a "not found" answer is remembered
}

// Enricher attaches coordinates to events. Each distinct location is looked
// up at most once per batch; successful lookups are cached without expiry.
type Enricher struct {
	geocoder Geocoder
	cache    *cache.LayeredCache
	cfg      Config
	hooks    Hooks
	log      zerolog.Logger
}

// cachedLocation is the cache record of one location
type cachedLocation struct {
	Found bool                `json:"found"`
	Entry model.GeoCacheEntry `json:"entry"`
}

// NewEnricher creates an enricher. A nil geocoder yields an enricher that
// returns events unchanged.
func NewEnricher(geocoder Geocoder, c *cache.LayeredCache, cfg Config, hooks Hooks, log zerolog.Logger) *Enricher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if c == nil {
		c = cache.NewLayeredCache(cache.NewMemoryCache(cache.NoExpiration, 10*time.Minute), nil)
	}
	return &Enricher{
		geocoder: geocoder,
		cache:    c,
		cfg:      cfg,
		hooks:    hooks,
		log:      log.With().Str("component", "geo").Logger(),
	}
}

// EnrichBatch returns a copy of events with coordinates set where resolution
// succeeded. Failed or timed-out lookups leave coordinates unset; the event
// is still returned. Cache hits make no external calls.
func (e *Enricher) EnrichBatch(ctx context.Context, events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	if e.geocoder == nil || len(events) == 0 {
		return out
	}

	resolved := make(map[string]*model.Coordinates)
	var pending []Query
	queued := make(map[string]bool)

	for _, ev := range events {
		q := QueryFor(ev)
		key := q.Key()
		if _, done := resolved[key]; done || queued[key] {
			continue
		}
		if loc, ok := e.lookupCache(key); ok {
			e.observe(OutcomeHit)
			if loc.Found {
				coords := loc.Entry.Coordinates
				resolved[key] = &coords
			} else {
				resolved[key] = nil
			}
			continue
		}
		queued[key] = true
		pending = append(pending, q)
	}

	if len(pending) > 0 {
		jobs := make([]worker.Job, len(pending))
		for i, q := range pending {
			jobs[i] = &lookupJob{geocoder: e.geocoder, query: q, timeout: e.cfg.Timeout}
		}
		for i, r := range worker.Run(ctx, e.cfg.Workers, jobs) {
			key := pending[i].Key()
			res, ok := r.(*lookupResult)
			if !ok {
				e.observe(OutcomeError)
				continue
			}
			resolved[key] = e.store(key, pending[i], res)
		}
	}

	for i := range out {
		if coords := resolved[QueryFor(out[i]).Key()]; coords != nil {
			c := *coords
			out[i].Coordinates = &c
		}
	}
	return out
}

func (e *Enricher) store(key string, q Query, res *lookupResult) *model.Coordinates {
	cacheKey := cache.Key("geo", key)
	switch {
	case res.err == nil:
		e.observe(OutcomeResolved)
		loc := cachedLocation{Found: true, Entry: model.GeoCacheEntry{Key: key, Coordinates: res.coords, ResolvedAt: time.Now().UTC()}}
		if data, err := json.Marshal(loc); err == nil {
			if err := e.cache.Set(cacheKey, data, cache.NoExpiration); err != nil {
				e.log.Warn().Err(err).Str("key", key).Msg("persisting geo cache entry failed")
			}
		}
		coords := res.coords
		return &coords

	case errors.Is(res.err, ErrNotFound):
		e.observe(OutcomeNotFound)
		e.log.Debug().Str("city", q.City).Str("region", q.Region).Msg("location not found")
		if e.cfg.NegativeTTL > 0 {
			if data, err := json.Marshal(cachedLocation{Found: false}); err == nil {
				_ = e.cache.SetMemory(cacheKey, data, e.cfg.NegativeTTL)
			}
		}

	case errors.Is(res.err, context.DeadlineExceeded):
		e.observe(OutcomeTimeout)
		e.log.Warn().Str("city", q.City).Str("region", q.Region).Dur("timeout", e.cfg.Timeout).Msg("geocoding timed out")

	default:
		e.observe(OutcomeError)
		e.log.Warn().Err(res.err).Str("city", q.City).Str("region", q.Region).Msg("geocoding failed")
	}
	return nil
}

func (e *Enricher) lookupCache(key string) (cachedLocation, bool) {
	data, ok := e.cache.Get(cache.Key("geo", key))
	if !ok {
		return cachedLocation{}, false
	}
	var loc cachedLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return cachedLocation{}, false
	}
	return loc, true
}

func (e *Enricher) observe(outcome string) {
	if e.hooks.OnLookup != nil {
		e.hooks.OnLookup(outcome)
	}
}

type lookupJob struct {
	geocoder Geocoder
	query    Query
	timeout  time.Duration
}

func (j *lookupJob) Execute(ctx context.Context) worker.Result {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	coords, err := j.geocoder.Geocode(ctx, j.query)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return &lookupResult{coords: coords, err: err}
}

type lookupResult struct {
	coords model.Coordinates
	err    error
}

func (r *lookupResult) GetError() error {
	return r.err
}
