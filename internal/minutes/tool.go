// Package minutes implements the stock_data_minutes tool: it normalizes the caller's
// arguments, dispatches to the adapter registered for the market and renders the bars.
package minutes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"financemcp/internal/mcp"
	"financemcp/internal/provider"
	"financemcp/internal/slogx"
)

// Name is the tool name exposed over MCP.
const Name = "stock_data_minutes"

// ErrorPrefix starts the text of every failed result.
const ErrorPrefix = "Failed to fetch minute bars: "

// Args are the raw tool arguments.
type Args struct {
	Code          string `json:"code" validate:"required"`
	MarketType    string `json:"market_type" validate:"required"`
	StartDatetime string `json:"start_datetime" validate:"required"`
	EndDatetime   string `json:"end_datetime" validate:"required"`
	Freq          string `json:"freq" validate:"required"`
}

// Tool dispatches minute-bar queries to one Fetcher per market.
type Tool struct {
	fetchers map[provider.MarketType]provider.Fetcher
	fallback provider.Credentials
	validate *validator.Validate
	logger   *slog.Logger
}

// Option configures a Tool.
type Option func(*Tool)

// WithFetcher serves market m with f.
func WithFetcher(m provider.MarketType, f provider.Fetcher) Option {
	return func(t *Tool) {
		if f != nil {
			t.fetchers[m] = f
		}
	}
}

// WithFallbackCredentials fills credentials the caller did not send, typically from env.
func WithFallbackCredentials(c provider.Credentials) Option {
	return func(t *Tool) {
		t.fallback = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewTool(opts ...Option) *Tool {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	t := &Tool{
		fetchers: map[provider.MarketType]provider.Fetcher{},
		validate: v,
		logger:   slogx.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Definition() mcp.ToolDefinition {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return mcp.ToolDefinition{
		Name:        Name,
		Description: "Fetch minute K-line bars for China A-shares (Tushare) or crypto pairs (Binance). Supports 1MIN/5MIN/15MIN/30MIN/60MIN over a start/end datetime range.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code":           str("Instrument code: '600519.SH' or '000001.SZ' for cn; 'BTCUSDT', 'BTC-USDT', 'BTC/USDT' or 'bitcoin.USDT' for crypto"),
				"market_type":    str("Market: 'cn' (A-shares, Tushare) or 'crypto' (Binance spot pairs)"),
				"start_datetime": str("Start, 'YYYYMMDDHHmmss' or 'YYYY-MM-DD HH:mm:ss'"),
				"end_datetime":   str("End, 'YYYYMMDDHHmmss' or 'YYYY-MM-DD HH:mm:ss'"),
				"freq":           str("Bar period: 1MIN/5MIN/15MIN/30MIN/60MIN (case-insensitive)"),
			},
			"required": []string{"code", "market_type", "start_datetime", "end_datetime", "freq"},
		},
	}
}

// Call decodes raw arguments and runs the tool.
func (t *Tool) Call(ctx context.Context, creds provider.Credentials, raw json.RawMessage) mcp.ToolResult {
	var args Args
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return ErrorToResult(provider.Wrap(provider.KindInvalidArgument, err, "invalid arguments"))
		}
	}
	return t.Run(ctx, creds, args)
}

// Run never panics and never returns a Go error: failures become error results.
func (t *Tool) Run(ctx context.Context, creds provider.Credentials, args Args) (res mcp.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			t.logger.Error("minute bars panic", "panic", rec)
			res = ErrorToResult(fmt.Errorf("internal error: %v", rec))
		}
	}()

	report, err := t.fetch(ctx, creds.WithFallback(t.fallback), args)
	if err != nil {
		t.logger.Warn("minute bars failed", "code", args.Code, "market", args.MarketType, "kind", provider.KindOf(err), "error", err)
		return ErrorToResult(err)
	}
	return mcp.TextResult(Render(report))
}

func (t *Tool) fetch(ctx context.Context, creds provider.Credentials, args Args) (Report, error) {
	args = trimArgs(args)
	if err := t.validateArgs(args); err != nil {
		return Report{}, err
	}

	start, err := provider.NormalizeTimestamp(args.StartDatetime)
	if err != nil {
		return Report{}, err
	}
	end, err := provider.NormalizeTimestamp(args.EndDatetime)
	if err != nil {
		return Report{}, err
	}
	if err := provider.ValidateRange(start, end); err != nil {
		return Report{}, err
	}
	freq, err := provider.ParseFrequency(args.Freq)
	if err != nil {
		return Report{}, err
	}
	market, err := provider.ParseMarketType(args.MarketType)
	if err != nil {
		return Report{}, err
	}
	fetcher, ok := t.fetchers[market]
	if !ok {
		return Report{}, provider.Errorf(provider.KindUnsupportedMarket, "no provider configured for market_type %q", market)
	}

	q := provider.Query{Code: args.Code, Market: market, Start: start, End: end, Freq: freq}
	bars, err := fetcher.FetchBars(ctx, creds, q)
	if err != nil {
		return Report{}, err
	}

	report := Report{Query: q, Provider: fetcher.Name(), Bars: bars}
	if namer, ok := fetcher.(provider.Namer); ok && market == provider.MarketCN && len(bars) > 0 {
		names, err := namer.CodeNames(ctx, creds, []string{q.Code})
		if err != nil {
			t.logger.Debug("code name lookup failed", "code", q.Code, "error", err)
		} else {
			report.Name = names[strings.ToUpper(q.Code)]
		}
	}
	return report, nil
}

func trimArgs(a Args) Args {
	a.Code = strings.TrimSpace(a.Code)
	a.MarketType = strings.TrimSpace(a.MarketType)
	a.StartDatetime = strings.TrimSpace(a.StartDatetime)
	a.EndDatetime = strings.TrimSpace(a.EndDatetime)
	a.Freq = strings.TrimSpace(a.Freq)
	return a
}

func (t *Tool) validateArgs(a Args) error {
	err := t.validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return provider.Wrap(provider.KindInvalidArgument, err, "invalid arguments")
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return provider.Errorf(provider.KindInvalidArgument, "missing required argument(s): %s", strings.Join(missing, ", "))
}

// ErrorToResult maps any failure to the tool's error result.
func ErrorToResult(err error) mcp.ToolResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return mcp.ErrorResult(ErrorPrefix + msg)
}
