// Package util holds the shared outbound HTTP client setup.
package util

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	proxy := (&httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}).ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}

// ClientOptions configures NewHTTPClient
type ClientOptions struct {
	Timeout    time.Duration
	UserAgent  string
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewHTTPClient creates a client with proxy support that stamps every
// request with the configured User-Agent
func NewHTTPClient(opts ClientOptions) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
	}
	if opts.UserAgent != "" {
		transport = &userAgentTransport{base: transport, userAgent: opts.UserAgent}
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
