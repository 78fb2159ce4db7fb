// Package dispatch drives the alert pipeline: it polls feeds, turns messages
// into events, suppresses duplicates, enriches and delivers the survivors.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/airwatch/internal/dedup"
	"github.com/ppiankov/airwatch/internal/deliver"
	"github.com/ppiankov/airwatch/internal/feed"
	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/normalize"
	"github.com/ppiankov/airwatch/internal/validate"
)

// Outcome is the fate of one message
type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeEmpty      Outcome = "empty"      // Nothing left after normalization
	OutcomeUnresolved Outcome = "unresolved" // No rule matched and the fallback did not resolve
	OutcomeSkipped    Outcome = "skipped"    // Rejected by the validator
	OutcomeDuplicate  Outcome = "duplicate"
)

// Delivery outcomes reported through Hooks
const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// Extractor is the rule engine
type Extractor interface {
	Extract(text string) (model.Extraction, bool)
}

// Resolver is the AI fallback; it is consulted only when the extractor
// finds no match
type Resolver interface {
	Resolve(ctx context.Context, text string) (model.Extraction, bool)
}

// Enricher attaches coordinates to a batch of events
type Enricher interface {
	EnrichBatch(ctx context.Context, events []model.Event) []model.Event
}

// Hooks receive pipeline observations. Nil fields are skipped.
type Hooks struct {
	OnMessage    func(feed string)
	OnExtraction func(source string)
	OnSkip       func(reason string)
	OnDuplicate  func()
	OnDelivery   func(outcome string)
	OnPollError  func(feed string)
	OnCycle      func(seconds float64)
}

// Config configures a Dispatcher
type Config struct {
	Feeds           []string
	SkipBacklog     bool          // Prime unknown feeds to their newest message instead of processing history
	DeliveryTimeout time.Duration // Deadline of one hand-off, retries included
}

// Dependencies are the collaborators of a Dispatcher. Fallback and Enricher
// are optional.
type Dependencies struct {
	Source    feed.Source
	Extractor Extractor
	Fallback  Resolver
	Validator *validate.Validator
	Dedup     *dedup.Cache
	Enricher  Enricher
	Sink      deliver.Sink
	Cursors   CursorStore
	Hooks     Hooks
	Logger    zerolog.Logger
}

// Result describes how one message was handled
type Result struct {
	Outcome     Outcome
	Text        string // Normalized text
	Event       model.Event
	Fingerprint model.Fingerprint
	Reason      validate.Reason // Set when skipped
	Suppressed  int             // Duplicates of this event dropped in the same cycle
}

// Stats summarizes one or more cycles
type Stats struct {
	Messages   int
	Accepted   int
	Unresolved int
	Skipped    int
	Duplicates int
	Delivered  int
	Failed     int
	PollErrors int
}

// Add accumulates other into s
func (s *Stats) Add(other Stats) {
	s.Messages += other.Messages
	s.Accepted += other.Accepted
	s.Unresolved += other.Unresolved
	s.Skipped += other.Skipped
	s.Duplicates += other.Duplicates
	s.Delivered += other.Delivered
	s.Failed += other.Failed
	s.PollErrors += other.PollErrors
}

// Dispatcher runs the pipeline. Stages up to dedup run sequentially per
// message; enrichment runs once per cycle over the accepted events.
type Dispatcher struct {
	deps Dependencies
	cfg  Config
	now  func() time.Time
	log  zerolog.Logger
}

// New creates a dispatcher
func New(cfg Config, deps Dependencies) *Dispatcher {
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = time.Minute
	}
	if deps.Cursors == nil {
		deps.Cursors = NewMemoryCursors()
	}
	return &Dispatcher{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
		log:  deps.Logger.With().Str("component", "dispatch").Logger(),
	}
}

// Evaluate normalizes, extracts and validates one message without touching
// the dedup cache
func (d *Dispatcher) Evaluate(ctx context.Context, msg model.RawMessage) Result {
	text := normalize.Text(msg.Text)
	if text == "" {
		return Result{Outcome: OutcomeEmpty}
	}

	x, ok := d.deps.Extractor.Extract(text)
	if ok {
		d.observe(d.deps.Hooks.OnExtraction, string(model.ConfidenceRule))
	} else if d.deps.Fallback != nil {
		x, ok = d.deps.Fallback.Resolve(ctx, text)
		if ok {
			d.observe(d.deps.Hooks.OnExtraction, string(model.ConfidenceAIFallback))
		}
	}
	if !ok {
		d.observe(d.deps.Hooks.OnExtraction, "none")
		return Result{Outcome: OutcomeUnresolved, Text: text}
	}

	ev := model.Materialize(x, msg, d.now())
	if reason, valid := d.deps.Validator.Check(ev); !valid {
		d.observe(d.deps.Hooks.OnSkip, string(reason))
		return Result{Outcome: OutcomeSkipped, Text: text, Event: ev, Reason: reason}
	}
	return Result{Outcome: OutcomeAccepted, Text: text, Event: ev, Fingerprint: dedup.Fingerprint(ev)}
}

// ProcessMessage evaluates msg and, when it yields a valid event, records
// its fingerprint. An accepted result must be handed to delivery or the
// fingerprint released with Release.
func (d *Dispatcher) ProcessMessage(ctx context.Context, msg model.RawMessage) Result {
	d.observe(d.deps.Hooks.OnMessage, msg.Feed)

	res := d.Evaluate(ctx, msg)
	log := d.log.With().Str("feed", msg.Feed).Int64("message_id", msg.ID).Logger()

	switch res.Outcome {
	case OutcomeAccepted:
	case OutcomeSkipped:
		log.Info().Str("reason", string(res.Reason)).Str("city", res.Event.City).Str("region", res.Event.Region).Msg("event skipped")
		return res
	default:
		log.Debug().Str("outcome", string(res.Outcome)).Msg("no event in message")
		return res
	}

	if !d.deps.Dedup.Accept(res.Fingerprint, d.now()) {
		if d.deps.Hooks.OnDuplicate != nil {
			d.deps.Hooks.OnDuplicate()
		}
		log.Debug().Str("fingerprint", string(res.Fingerprint)).Msg("duplicate event")
		res.Outcome = OutcomeDuplicate
		return res
	}

	log.Info().
		Str("event_id", res.Event.ID).
		Str("threat", string(res.Event.Threat)).
		Str("city", res.Event.City).
		Str("region", res.Event.Region).
		Str("confidence", string(res.Event.Confidence)).
		Str("rule", res.Event.Rule).
		Msg("event accepted")
	return res
}

// Release forgets the fingerprint of an accepted result that will not be
// delivered
func (d *Dispatcher) Release(res Result) {
	if res.Outcome == OutcomeAccepted {
		d.deps.Dedup.Forget(res.Fingerprint)
	}
}

// RunCycle polls every feed once, processes new messages in ascending ID
// order and delivers the accepted events. Once a fingerprint is accepted its
// event is handed to delivery even if ctx is cancelled meanwhile; cancellation
// only stops further polling and abandons enrichment.
func (d *Dispatcher) RunCycle(ctx context.Context) Stats {
	start := time.Now()
	log := d.log.With().Str("cycle", uuid.NewString()).Logger()

	var stats Stats
	var accepted []Result
	byFingerprint := make(map[model.Fingerprint]int)
	advance := make(map[string]int64)

	for _, name := range d.cfg.Feeds {
		if ctx.Err() != nil {
			break
		}

		cursor, known, err := d.deps.Cursors.Cursor(ctx, name)
		if err != nil {
			log.Warn().Err(err).Str("feed", name).Msg("reading cursor failed")
			stats.PollErrors++
			d.observe(d.deps.Hooks.OnPollError, name)
			continue
		}

		msgs, err := d.deps.Source.Poll(ctx, name, cursor)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Warn().Err(err).Str("feed", name).Msg("poll failed")
			stats.PollErrors++
			d.observe(d.deps.Hooks.OnPollError, name)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		if !known && d.cfg.SkipBacklog {
			newest := msgs[len(msgs)-1].ID
			advance[name] = newest
			log.Info().Str("feed", name).Int64("cursor", newest).Int("skipped", len(msgs)).Msg("feed primed, backlog skipped")
			continue
		}

		for _, msg := range msgs {
			if ctx.Err() != nil {
				break
			}
			stats.Messages++
			res := d.ProcessMessage(ctx, msg)
			switch res.Outcome {
			case OutcomeAccepted:
				stats.Accepted++
				byFingerprint[res.Fingerprint] = len(accepted)
				accepted = append(accepted, res)
			case OutcomeUnresolved, OutcomeEmpty:
				stats.Unresolved++
			case OutcomeSkipped:
				stats.Skipped++
			case OutcomeDuplicate:
				stats.Duplicates++
				if i, ok := byFingerprint[res.Fingerprint]; ok {
					accepted[i].Suppressed++
				}
			}
			advance[name] = msg.ID
		}
	}

	delivered, failed := d.handOff(ctx, log, accepted)
	stats.Delivered, stats.Failed = delivered, failed

	persist := context.WithoutCancel(ctx)
	for name, id := range advance {
		if err := d.deps.Cursors.SetCursor(persist, name, id); err != nil {
			log.Warn().Err(err).Str("feed", name).Int64("cursor", id).Msg("saving cursor failed")
		}
	}

	elapsed := time.Since(start)
	if d.deps.Hooks.OnCycle != nil {
		d.deps.Hooks.OnCycle(elapsed.Seconds())
	}
	log.Debug().
		Int("messages", stats.Messages).
		Int("accepted", stats.Accepted).
		Int("duplicates", stats.Duplicates).
		Int("skipped", stats.Skipped).
		Int("delivered", stats.Delivered).
		Int("failed", stats.Failed).
		Dur("elapsed", elapsed).
		Msg("cycle finished")
	return stats
}

// handOff enriches and delivers accepted events. Delivery runs detached from
// ctx so that shutdown never strands an accepted fingerprint. A failed event
// is released but not retried: its cursor has already moved past it, so the
// event and any duplicates suppressed against it this cycle are lost.
func (d *Dispatcher) handOff(ctx context.Context, log zerolog.Logger, accepted []Result) (delivered, failed int) {
	if len(accepted) == 0 {
		return 0, 0
	}

	events := make([]model.Event, len(accepted))
	for i, res := range accepted {
		events[i] = res.Event
	}
	if d.deps.Enricher != nil {
		events = d.deps.Enricher.EnrichBatch(ctx, events)
	}

	detached := context.WithoutCancel(ctx)
	for i, ev := range events {
		n := deliver.Notification{Text: Format(ev), MediaRef: ev.MediaRef}

		dctx, cancel := context.WithTimeout(detached, d.cfg.DeliveryTimeout)
		err := d.deps.Sink.Deliver(dctx, n)
		cancel()

		if err != nil {
			failed++
			d.Release(accepted[i])
			d.observe(d.deps.Hooks.OnDelivery, DeliveryFailed)
			log.Error().Err(err).
				Str("event_id", ev.ID).
				Str("feed", ev.Feed).
				Int64("message_id", ev.MessageID).
				Str("text", n.Text).
				Int("suppressed_duplicates", accepted[i].Suppressed).
				Msg("delivery failed, event dropped")
			continue
		}
		delivered++
		d.observe(d.deps.Hooks.OnDelivery, DeliveryDelivered)
		log.Info().Str("event_id", ev.ID).Str("text", n.Text).Bool("geo", ev.Coordinates != nil).Msg("event delivered")
	}
	return delivered, failed
}

// Run executes a cycle immediately and then every interval until ctx is
// done. A new cycle is never started after cancellation.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) Stats {
	var total Stats
	if ctx.Err() != nil {
		return total
	}
	total.Add(d.RunCycle(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Err(ctx.Err()).Msg("polling stopped")
			return total
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			total.Add(d.RunCycle(ctx))
		}
	}
}

func (d *Dispatcher) observe(hook func(string), value string) {
	if hook != nil {
		hook(value)
	}
}
