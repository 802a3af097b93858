package httpx

import (
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when a request carries no User-Agent of its own.
const DefaultUserAgent = "financemcp/1.0"

// Option adds default headers to the client built by New.
type Option func(http.Header)

func WithUserAgent(ua string) Option {
	return func(h http.Header) { h.Set("User-Agent", ua) }
}

func WithHeader(key, value string) Option {
	return func(h http.Header) { h.Set(key, value) }
}

// New builds a pooled *http.Client, which satisfies the HTTPClient interfaces of the
// provider clients. timeout bounds each whole request; zero leaves it to the request context.
func New(timeout time.Duration, opts ...Option) *http.Client {
	defaults := http.Header{"User-Agent": []string{DefaultUserAgent}}
	for _, opt := range opts {
		opt(defaults)
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: &headerTransport{base: transport, defaults: defaults}}
}

// headerTransport fills headers the request did not set. The caller's request is cloned,
// never modified.
type headerTransport struct {
	base     http.RoundTripper
	defaults http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var missing []string
	for k := range t.defaults {
		if req.Header.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	for _, k := range missing {
		clone.Header.Set(k, t.defaults.Get(k))
	}
	return t.base.RoundTrip(clone)
}
