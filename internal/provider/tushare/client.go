package tushare

import (
	"log/slog"
	"net/http"
	"time"

	"financemcp/internal/provider/ratelimit"
	"financemcp/internal/slogx"
)

const (
	baseURL = "https://api.tushare.pro"

	// DefaultTimeout bounds a single request, including reading the body.
	DefaultTimeout = 30 * time.Second
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=tushare_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Tushare Pro API.
type Client struct {
	// baseURL is the endpoint every api_name is posted to.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// timeout is applied to each request through its context.
	timeout time.Duration
	// limiter, when set, is waited on before every request.
	limiter ratelimit.Limiter
	logger  *slog.Logger
}

// ClientOption is a configuration option for the Tushare client.
type ClientOption func(*Client)

// WithBaseURL sets the endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLimiter gates every request on l. The token check in Fetcher runs first, so a
// call that cannot authenticate never spends quota.
func WithLimiter(l ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new Tushare client. The token is not part of the client: it is
// supplied per call so one client can serve callers with different tokens.
func NewClient(options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		timeout:    DefaultTimeout,
		logger:     slogx.Discard(),
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}
