package binance

import (
	"context"
	"log/slog"

	"financemcp/internal/provider"
	"financemcp/internal/slogx"
)

const (
	// PageLimit is the most rows Binance returns per klines call.
	PageLimit = 1000
	// MaxPages bounds a single retrieval against runaway pagination.
	MaxPages = 500
)

// Fetcher serves the crypto market by paging through /api/v3/klines.
type Fetcher struct {
	client *Client
	logger *slog.Logger
}

func NewFetcher(client *Client, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slogx.Discard()
	}
	return &Fetcher{client: client, logger: logger}
}

func (f *Fetcher) Name() string { return "binance" }

// FetchBars ignores credentials: klines is a public endpoint.
func (f *Fetcher) FetchBars(ctx context.Context, _ provider.Credentials, q provider.Query) ([]provider.Bar, error) {
	symbol, err := ResolveSymbol(q.Code)
	if err != nil {
		return nil, err
	}
	interval, err := Interval(q.Freq)
	if err != nil {
		return nil, err
	}

	rows, err := f.fetchAll(ctx, symbol, interval, q.Start.UnixMilli(), q.End.UnixMilli())
	if err != nil {
		return nil, err
	}

	bars := make([]provider.Bar, 0, len(rows))
	for i, row := range rows {
		bar, err := row.Bar()
		if err != nil {
			return nil, provider.Wrap(provider.KindMalformedResponse, err, "binance kline row %d", i)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// fetchAll pages forward from startMs. It stops on an empty page, on a page whose last open
// time does not move past the cursor, on a short page, or after MaxPages pages.
// Any failed page discards what was accumulated.
func (f *Fetcher) fetchAll(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]Kline, error) {
	var all []Kline
	cursor, page := startMs, 0
	for cursor < endMs && page < MaxPages {
		rows, err := f.client.Klines(ctx, KlinesRequest{
			Symbol:    symbol,
			Interval:  interval,
			StartTime: cursor,
			EndTime:   endMs,
			Limit:     PageLimit,
		})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		all = append(all, rows...)

		lastOpen, err := rows[len(rows)-1].OpenTime()
		if err != nil {
			return nil, provider.Wrap(provider.KindMalformedResponse, err, "binance kline open time")
		}
		if lastOpen <= cursor {
			f.logger.Warn("binance cursor did not advance", "symbol", symbol, "cursor", cursor, "last_open", lastOpen)
			break
		}
		cursor = lastOpen + 1
		page++
		f.logger.Debug("binance page", "symbol", symbol, "page", page, "rows", len(rows), "cursor", cursor)
		if len(rows) < PageLimit {
			break
		}
	}
	return all, nil
}
