package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/util"
)

const (
	defaultTelegramURL = "https://t.me"
	defaultMaxBytes    = 4 << 20
	defaultMaxAttempts = 3
)

// StatusError is a non-2xx answer from the channel page
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// TelegramWeb polls public channels through their web preview
// (https://t.me/s/<channel>). Only the most recent posts are visible there,
// so a channel that publishes faster than the poll interval can skip posts.
type TelegramWeb struct {
	baseURL     string
	httpClient  *http.Client
	maxBytes    int64
	maxAttempts int
	log         zerolog.Logger
}

// NewTelegramWeb creates a Telegram web preview source
func NewTelegramWeb(opts Options, log zerolog.Logger) *TelegramWeb {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultTelegramURL
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	client := util.NewHTTPClient(util.ClientOptions{
		Timeout:    opts.Timeout,
		UserAgent:  opts.UserAgent,
		HTTPProxy:  opts.HTTPProxy,
		HTTPSProxy: opts.HTTPSProxy,
		NoProxy:    opts.NoProxy,
	})
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	return &TelegramWeb{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  client,
		maxBytes:    maxBytes,
		maxAttempts: attempts,
		log:         log.With().Str("component", "feed").Logger(),
	}
}

// Name returns the source name
func (t *TelegramWeb) Name() string {
	return "telegram"
}

// Poll fetches the channel page and returns the posts above since
func (t *TelegramWeb) Poll(ctx context.Context, feed string, since int64) ([]model.RawMessage, error) {
	pageURL := t.baseURL + "/s/" + url.PathEscape(feed)

	body, err := t.fetchWithRetry(ctx, pageURL)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFeed, feed)
		}
		return nil, fmt.Errorf("poll %s: %w", feed, err)
	}

	msgs, err := ParseChannelPage(feed, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feed, err)
	}
	return after(msgs, since), nil
}

// fetchWithRetry retries transient failures (transport errors, 429 and 5xx)
// with exponential backoff. Other statuses fail immediately.
func (t *TelegramWeb) fetchWithRetry(ctx context.Context, pageURL string) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (string, error) {
		body, err := t.fetch(ctx, pageURL)
		if err != nil && !isRetryableFetchError(err) {
			return "", backoff.Permanent(err)
		}
		return body, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(t.maxAttempts)),
		backoff.WithNotify(func(err error, d time.Duration) {
			t.log.Debug().Err(err).Str("url", pageURL).Dur("retry_in", d).Msg("fetch failed, retrying")
		}),
	)
}

func (t *TelegramWeb) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "uk-UA,uk;q=0.9,en;q=0.5")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return strings.HasPrefix(err.Error(), "fetch: ")
}
