package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/wire"

	"financemcp/internal/clock"
	"financemcp/internal/config"
	"financemcp/internal/httpx"
	"financemcp/internal/mcp"
	"financemcp/internal/minutes"
	"financemcp/internal/provider"
	"financemcp/internal/provider/binance"
	"financemcp/internal/provider/ratelimit"
	"financemcp/internal/provider/tushare"
	"financemcp/internal/slogx"
)

const (
	ServerName    = "FinanceMCP"
	ServerVersion = "1.0.0"
)

// ProviderSet is everything needed to build the MCP server from config.
var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideHTTPClient,
	ProvideTushareFetcher,
	ProvideBinanceFetcher,
	ProvideMinutesTool,
	ProvideClockTool,
	ProvideMCPServer,
)

// ProvideConfig loads config from CONFIG_FILE (or ./config.json / ./config.yaml) plus env (for Wire).
func ProvideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// ProvideLogger builds the stderr logger at the configured level (for Wire).
func ProvideLogger(cfg config.Config) *slog.Logger {
	return slogx.NewDefault(cfg.Log.Level)
}

// ProvideHTTPClient shares one transport between both adapters (for Wire).
// The overall timeout bounds every page; Tushare additionally applies its own deadline.
func ProvideHTTPClient(cfg config.Config) *http.Client {
	return httpx.New(cfg.Server.RequestTimeout())
}

// ProvideTushareFetcher creates the cn adapter with a per-request limiter (for Wire).
func ProvideTushareFetcher(cfg config.Config, hc *http.Client, logger *slog.Logger) (*tushare.Fetcher, error) {
	opts := []tushare.ClientOption{
		tushare.WithBaseURL(cfg.Tushare.Endpoint),
		tushare.WithHTTPClient(hc),
		tushare.WithTimeout(cfg.Tushare.Timeout()),
		tushare.WithLogger(logger),
	}
	if l := ratelimit.New(cfg.Tushare.MaxRequestsPerMinute, cfg.Tushare.Burst, cfg.Tushare.MinInterval()); l != nil {
		opts = append(opts, tushare.WithLimiter(l))
	}
	client, err := tushare.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("tushare client: %w", err)
	}
	return tushare.NewFetcher(client), nil
}

// ProvideBinanceFetcher creates the crypto adapter with a per-page limiter (for Wire).
func ProvideBinanceFetcher(cfg config.Config, hc *http.Client, logger *slog.Logger) (*binance.Fetcher, error) {
	opts := []binance.ClientOption{
		binance.WithBaseURL(cfg.Binance.Endpoint),
		binance.WithHTTPClient(hc),
		binance.WithLogger(logger),
	}
	if cfg.Binance.MaxRequestsPerMinute > 0 {
		opts = append(opts, binance.WithLimiter(ratelimit.PerMinute(cfg.Binance.MaxRequestsPerMinute, cfg.Binance.Burst)))
	}
	client, err := binance.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("binance client: %w", err)
	}
	return binance.NewFetcher(client, logger), nil
}

// ProvideMinutesTool registers both markets; the env/config token is the credential fallback (for Wire).
func ProvideMinutesTool(cfg config.Config, ts *tushare.Fetcher, bn *binance.Fetcher, logger *slog.Logger) *minutes.Tool {
	if cfg.Tushare.Token == "" {
		logger.Warn("TUSHARE_TOKEN not set; cn queries need the X-Tushare-Token header")
	}
	return minutes.NewTool(
		minutes.WithFetcher(provider.MarketCN, ts),
		minutes.WithFetcher(provider.MarketCrypto, bn),
		minutes.WithFallbackCredentials(provider.Credentials{TushareToken: cfg.Tushare.Token}),
		minutes.WithLogger(logger),
	)
}

// ProvideClockTool creates current_timestamp (for Wire).
func ProvideClockTool(logger *slog.Logger) *clock.Tool {
	return clock.NewTool(clock.WithLogger(logger))
}

// ProvideMCPServer exposes both tools over MCP (for Wire).
func ProvideMCPServer(tool *minutes.Tool, clk *clock.Tool, logger *slog.Logger) *mcp.Server {
	return mcp.NewServer(ServerName, ServerVersion, logger, tool, clk)
}
