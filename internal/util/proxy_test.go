package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure-proxy.local:3128", "api.telegram.org")

	req, _ := http.NewRequest(http.MethodGet, "https://nominatim.openstreetmap.org/search", nil)
	u, err := proxy(req)
	if err != nil || u == nil || u.Host != "secure-proxy.local:3128" {
		t.Errorf("expected https proxy, got %v %v", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "https://api.telegram.org/bot/sendMessage", nil)
	u, err = proxy(req)
	if err != nil || u != nil {
		t.Errorf("expected no proxy for excluded host, got %v %v", u, err)
	}
}

func TestNewHTTPClient_UserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client := NewHTTPClient(ClientOptions{Timeout: time.Second, UserAgent: "airwatch-test"})
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	_ = resp.Body.Close()

	if got != "airwatch-test" {
		t.Errorf("expected User-Agent airwatch-test, got %q", got)
	}
}
