package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const channelPage = `<!DOCTYPE html>
<html><body>
<section class="tgme_channel_history js-message_history">
 <div class="tgme_widget_message_wrap js-widget_message_wrap">
  <div class="tgme_widget_message text_not_supported_wrap js-widget_message" data-post="war_monitor/1002">
   <div class="tgme_widget_message_bubble">
    <a class="tgme_widget_message_photo_wrap blured" style="width:800px;background-image:url('https://cdn4.telesco.pe/file/map.jpg')" href="https://t.me/war_monitor/1002"></a>
    <div class="tgme_widget_message_text js-message_text" dir="auto"><i class="emoji"><b>🛵</b></i> Суми<br/>Мопед курсом на <b>Полтаву</b></div>
    <div class="tgme_widget_message_footer"><a class="tgme_widget_message_date" href="https://t.me/war_monitor/1002"><time datetime="2024-05-01T10:02:00+00:00" class="time">10:02</time></a></div>
   </div>
  </div>
 </div>
 <div class="tgme_widget_message_wrap js-widget_message_wrap">
  <div class="tgme_widget_message js-widget_message" data-post="war_monitor/1001">
   <div class="tgme_widget_message_bubble">
    <a class="tgme_widget_message_reply" href="https://t.me/war_monitor/990"><div class="tgme_widget_message_text js-message_reply_text">old reply text</div></a>
    <div class="tgme_widget_message_text js-message_text" dir="auto">БПЛА курсом на Полтаву</div>
    <div class="tgme_widget_message_footer"><time datetime="2024-05-01T10:01:00+00:00" class="time">10:01</time></div>
   </div>
  </div>
 </div>
 <div class="tgme_widget_message_wrap js-widget_message_wrap">
  <div class="tgme_widget_message js-widget_message" data-post="other_channel/77">
   <div class="tgme_widget_message_text js-message_text">forwarded</div>
  </div>
 </div>
 <div class="tgme_widget_message_wrap js-widget_message_wrap">
  <div class="tgme_widget_message js-widget_message" data-post="war_monitor/1000">
   <div class="tgme_widget_message_footer"><time datetime="2024-05-01T10:00:00+00:00" class="time">10:00</time></div>
  </div>
 </div>
</section>
</body></html>`

func TestParseChannelPage(t *testing.T) {
	msgs, err := ParseChannelPage("war_monitor", strings.NewReader(channelPage))
	if err != nil {
		t.Fatalf("ParseChannelPage failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 posts, got %d: %+v", len(msgs), msgs)
	}

	first := msgs[0]
	if first.ID != 1002 || first.Feed != "war_monitor" {
		t.Errorf("unexpected post identity %+v", first)
	}
	if first.Text != "🛵 Суми\nМопед курсом на Полтаву" {
		t.Errorf("unexpected text %q", first.Text)
	}
	if first.MediaRef != "https://cdn4.telesco.pe/file/map.jpg" {
		t.Errorf("unexpected media %q", first.MediaRef)
	}
	if !first.ReceivedAt.Equal(time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC)) {
		t.Errorf("unexpected time %v", first.ReceivedAt)
	}

	if msgs[1].Text != "БПЛА курсом на Полтаву" {
		t.Errorf("reply text leaked into post: %q", msgs[1].Text)
	}
	if msgs[2].ID != 1000 || msgs[2].Text != "" {
		t.Errorf("expected empty post 1000, got %+v", msgs[2])
	}
}

func TestTelegramWeb_Poll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/s/war_monitor" {
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != "airwatch-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, channelPage)
	}))
	defer server.Close()

	src := NewTelegramWeb(Options{BaseURL: server.URL, UserAgent: "airwatch-test"}, zerolog.Nop())

	msgs, err := src.Poll(context.Background(), "war_monitor", 1000)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != 1001 || msgs[1].ID != 1002 {
		t.Fatalf("expected posts 1001,1002 in order, got %+v", msgs)
	}

	again, err := src.Poll(context.Background(), "war_monitor", 1000)
	if err != nil || len(again) != len(msgs) {
		t.Errorf("re-poll not idempotent: %d messages, err %v", len(again), err)
	}

	_, err = src.Poll(context.Background(), "missing", 0)
	if !errors.Is(err, ErrUnknownFeed) {
		t.Errorf("expected ErrUnknownFeed, got %v", err)
	}
}

func TestTelegramWeb_RetriesTransientErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, channelPage)
	}))
	defer server.Close()

	src := NewTelegramWeb(Options{BaseURL: server.URL}, zerolog.Nop())
	msgs, err := src.Poll(context.Background(), "war_monitor", 0)
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("expected 3 posts, got %d", len(msgs))
	}
	if attempts.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts.Load())
	}
}

func TestTelegramWeb_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src := NewTelegramWeb(Options{BaseURL: server.URL}, zerolog.Nop())
	if _, err := src.Poll(context.Background(), "war_monitor", 0); err == nil {
		t.Fatal("expected error for 403")
	}
	if attempts.Load() != 1 {
		t.Errorf("403 must not be retried, got %d attempts", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
	}{
		{&StatusError{Code: 503}, true},
		{&StatusError{Code: 500}, true},
		{&StatusError{Code: 429}, true},
		{&StatusError{Code: 404}, false},
		{&StatusError{Code: 403}, false},
		{errors.New("fetch: connection refused"), true},
		{errors.New("create request: invalid URL"), false},
		{errors.New("read body: unexpected EOF"), false},
		{fmt.Errorf("fetch: %w", context.Canceled), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isRetryableFetchError(tt.err); got != tt.retryable {
			t.Errorf("isRetryableFetchError(%v) = %v, want %v", tt.err, got, tt.retryable)
		}
	}
}

func TestFileSource_Poll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	data := `{"feed":"kpszsu","id":7,"text":"КАБи на Харків","time":"2024-05-01T10:00:00Z"}

{"feed":"war_monitor","id":3,"text":"БПЛА курсом на Полтаву"}
{"feed":"war_monitor","id":1,"text":"Суми - вибухи"}
{"feed":"war_monitor","id":3,"text":"БПЛА курсом на Полтаву"}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFileSource(path)
	msgs, err := src.Poll(context.Background(), "war_monitor", 0)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != 1 || msgs[1].ID != 3 {
		t.Fatalf("expected ids 1,3, got %+v", msgs)
	}

	msgs, _ = src.Poll(context.Background(), "war_monitor", 3)
	if len(msgs) != 0 {
		t.Errorf("expected nothing above cursor 3, got %+v", msgs)
	}

	if _, err := src.Poll(context.Background(), "nope", 0); !errors.Is(err, ErrUnknownFeed) {
		t.Errorf("expected ErrUnknownFeed, got %v", err)
	}
}

func TestReadMessages_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"feed\":\"a\",\"id\":1}\nnot json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadMessages(path)
	if err == nil || !strings.Contains(err.Error(), ":2:") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}

func TestNewSource(t *testing.T) {
	if s, err := NewSource(Options{Kind: "telegram"}, zerolog.Nop()); err != nil || s.Name() != "telegram" {
		t.Errorf("telegram: %v, %v", s, err)
	}
	if _, err := NewSource(Options{Kind: "file"}, zerolog.Nop()); err == nil {
		t.Error("expected error for file source without path")
	}
	if _, err := NewSource(Options{Kind: "rss"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown kind")
	}
}
