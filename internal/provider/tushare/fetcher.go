package tushare

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"financemcp/internal/provider"
)

// Column aliases per logical bar field; the first alias present in the response wins.
var (
	timeAliases   = []string{"trade_time", "time", "datetime"}
	openAliases   = []string{"open"}
	highAliases   = []string{"high"}
	lowAliases    = []string{"low"}
	closeAliases  = []string{"close"}
	volumeAliases = []string{"vol", "volume"}
	amountAliases = []string{"amount", "amt"}
)

// Fetcher serves the cn market from the stk_mins endpoint in a single request.
type Fetcher struct {
	client *Client
}

func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

func (f *Fetcher) Name() string { return "tushare" }

// FetchBars requires creds.TushareToken and fails before any I/O without it.
// An empty result is returned as an empty slice, not an error.
func (f *Fetcher) FetchBars(ctx context.Context, creds provider.Credentials, q provider.Query) ([]provider.Bar, error) {
	token := strings.TrimSpace(creds.TushareToken)
	if token == "" {
		return nil, provider.Errorf(provider.KindMissingCredential, "missing Tushare token: send the X-Tushare-Token header or set TUSHARE_TOKEN")
	}

	table, err := f.client.Query(ctx, token, "stk_mins", map[string]string{
		"ts_code":    NormalizeCode(q.Code),
		"start_time": q.Start.String(),
		"end_time":   q.End.String(),
		"freq":       Freq(q.Freq),
	}, "")
	if err != nil {
		return nil, err
	}
	if table.Empty() {
		return []provider.Bar{}, nil
	}
	return toBars(table), nil
}

// CodeNames implements provider.Namer.
func (f *Fetcher) CodeNames(ctx context.Context, creds provider.Credentials, codes []string) (map[string]string, error) {
	token := strings.TrimSpace(creds.TushareToken)
	if token == "" {
		return nil, provider.Errorf(provider.KindMissingCredential, "missing Tushare token")
	}
	return f.client.StockBasic(ctx, token, codes)
}

// NormalizeCode trims and upper-cases a ts_code such as "600519.sh".
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Freq is the stk_mins freq token; it is spelled like the canonical frequency.
func Freq(f provider.Frequency) string { return string(f) }

func toBars(t *Table) []provider.Bar {
	timeIdx := t.Column(timeAliases...)
	openIdx := t.Column(openAliases...)
	highIdx := t.Column(highAliases...)
	lowIdx := t.Column(lowAliases...)
	closeIdx := t.Column(closeAliases...)
	volIdx := t.Column(volumeAliases...)
	amtIdx := t.Column(amountAliases...)

	bars := make([]provider.Bar, 0, len(t.Items))
	for _, row := range t.Items {
		bars = append(bars, provider.Bar{
			Time:   cellString(row, timeIdx),
			Open:   cellDecimal(row, openIdx),
			High:   cellDecimal(row, highIdx),
			Low:    cellDecimal(row, lowIdx),
			Close:  cellDecimal(row, closeIdx),
			Volume: cellDecimal(row, volIdx),
			Amount: cellDecimal(row, amtIdx),
		})
	}
	return bars
}

func cell(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func cellString(row []any, idx int) string {
	switch v := cell(row, idx).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func cellDecimal(row []any, idx int) decimal.NullDecimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := cell(row, idx).(type) {
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case float64:
		d = decimal.NewFromFloat(v)
	default:
		return decimal.NullDecimal{}
	}
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
