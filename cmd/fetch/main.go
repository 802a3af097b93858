package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"financemcp/internal/app"
	"financemcp/internal/minutes"
	"financemcp/internal/provider"
)

// fetch runs a single stock_data_minutes query and prints the markdown report.
func main() {
	var args minutes.Args
	var token string

	flag.StringVar(&args.Code, "code", getenv("CODE", "600519.SH"), "instrument code, e.g. 600519.SH or BTCUSDT")
	flag.StringVar(&args.MarketType, "market", getenv("MARKET_TYPE", "cn"), "market type: cn or crypto")
	flag.StringVar(&args.StartDatetime, "start", "", "start datetime, YYYYMMDDHHmmss or YYYY-MM-DD HH:mm:ss")
	flag.StringVar(&args.EndDatetime, "end", "", "end datetime, YYYYMMDDHHmmss or YYYY-MM-DD HH:mm:ss")
	flag.StringVar(&args.Freq, "freq", "5min", "bar period: 1min/5min/15min/30min/60min")
	flag.StringVar(&token, "token", "", "Tushare token (defaults to TUSHARE_TOKEN)")
	flag.Parse()

	cfg, err := app.ProvideConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := app.ProvideLogger(cfg)
	slog.SetDefault(logger)

	hc := app.ProvideHTTPClient(cfg)
	ts, err := app.ProvideTushareFetcher(cfg, hc, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tushare: %v\n", err)
		os.Exit(1)
	}
	bn, err := app.ProvideBinanceFetcher(cfg, hc, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "binance: %v\n", err)
		os.Exit(1)
	}
	tool := app.ProvideMinutesTool(cfg, ts, bn, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout())
	defer cancel()
	res := tool.Run(ctx, provider.Credentials{TushareToken: token}, args)
	fmt.Println(res.Text())
	if res.IsError {
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
