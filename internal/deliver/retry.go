package deliver

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// RetryConfig bounds delivery retries
type RetryConfig struct {
	MaxTries       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Retrying wraps a sink with bounded exponential backoff. Client errors that
// cannot succeed on repeat (4xx other than 429) are not retried.
type Retrying struct {
	sink Sink
	cfg  RetryConfig
	log  zerolog.Logger
}

// NewRetrying wraps sink
func NewRetrying(sink Sink, cfg RetryConfig, log zerolog.Logger) *Retrying {
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return &Retrying{
		sink: sink,
		cfg:  cfg,
		log:  log.With().Str("component", "deliver").Str("sink", sink.Name()).Logger(),
	}
}

// Name returns the wrapped sink's name
func (r *Retrying) Name() string {
	return r.sink.Name()
}

// Deliver hands n to the sink, retrying transient failures
func (r *Retrying) Deliver(ctx context.Context, n Notification) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialBackoff
	b.MaxInterval = r.cfg.MaxBackoff

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := r.sink.Deliver(ctx, n)
		if err == nil {
			return struct{}{}, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if !apiErr.Temporary() {
				return struct{}{}, backoff.Permanent(err)
			}
			if apiErr.RetryAfter > 0 {
				return struct{}{}, backoff.RetryAfter(apiErr.RetryAfter)
			}
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.MaxTries)),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.log.Warn().Err(err).Dur("retry_in", d).Msg("delivery failed, retrying")
		}),
	)
	return err
}
