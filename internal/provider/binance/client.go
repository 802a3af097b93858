package binance

import (
	"log/slog"
	"net/http"

	"financemcp/internal/provider/ratelimit"
	"financemcp/internal/slogx"
)

const baseURL = "https://api.binance.com"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=binance_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the public Binance spot market-data API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// limiter gates every request when set.
	limiter ratelimit.Limiter
	logger  *slog.Logger
}

// ClientOption is a configuration option for the Binance client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
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

// WithLimiter makes every request wait on l first.
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

// NewClient creates a new Binance client. The klines endpoint is public, so no key is taken.
func NewClient(options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		logger:     slogx.Discard(),
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}
