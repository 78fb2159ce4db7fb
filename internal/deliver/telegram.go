package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/airwatch/internal/util"
	"github.com/ppiankov/airwatch/internal/worker"
)

const defaultBotURL = "https://api.telegram.org"

// APIError is an unsuccessful Bot API answer
type APIError struct {
	Status      int
	Description string
	RetryAfter  int // Seconds, set on 429
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error (%d): %s", e.Status, e.Description)
}

// Temporary reports whether the request may succeed when repeated
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// BotOptions configures a Telegram bot sink
type BotOptions struct {
	Token      string
	ChatID     string
	BaseURL    string
	UserAgent  string
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	Timeout    time.Duration   // Per-request HTTP timeout
	Limiter    *worker.Limiter // Paces sends; nil sends immediately
}

// TelegramBot posts notifications to a chat through the Bot API
type TelegramBot struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
	limiter    *worker.Limiter
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// NewTelegramBot creates a bot sink; the token and chat ID are required
func NewTelegramBot(opts BotOptions) (*TelegramBot, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if opts.ChatID == "" {
		return nil, fmt.Errorf("telegram destination chat is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBotURL
	}
	return &TelegramBot{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   opts.Token,
		chatID:  opts.ChatID,
		httpClient: util.NewHTTPClient(util.ClientOptions{
			Timeout:    opts.Timeout,
			UserAgent:  opts.UserAgent,
			HTTPProxy:  opts.HTTPProxy,
			HTTPSProxy: opts.HTTPSProxy,
			NoProxy:    opts.NoProxy,
		}),
		limiter: opts.Limiter,
	}, nil
}

// Name returns the sink name
func (b *TelegramBot) Name() string {
	return "telegram"
}

// Deliver sends the notification. With media it is sent as a photo caption;
// if the photo is rejected the text is sent on its own.
func (b *TelegramBot) Deliver(ctx context.Context, n Notification) error {
	if n.MediaRef != "" {
		err := b.call(ctx, "sendPhoto", map[string]any{
			"chat_id": b.chatID,
			"photo":   n.MediaRef,
			"caption": n.Text,
		})
		var apiErr *APIError
		if err == nil || !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
			return err
		}
	}
	return b.call(ctx, "sendMessage", map[string]any{
		"chat_id":                  b.chatID,
		"text":                     n.Text,
		"disable_web_page_preview": true,
	})
}

func (b *TelegramBot) call(ctx context.Context, method string, payload map[string]any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx, endpoint); err != nil {
			return err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, redact(err, b.token))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var out botResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return &APIError{Status: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return &APIError{Status: resp.StatusCode, Description: out.Description, RetryAfter: out.Parameters.RetryAfter}
	}
	return nil
}

// redact keeps the bot token out of transport errors, which embed the URL
func redact(err error, token string) error {
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(msg, token, "<token>"))
}
