package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"financemcp/internal/provider"
	"financemcp/internal/provider/ratelimit"
)

// codeInvalidSymbol is Binance's error code for an unknown trading pair.
const codeInvalidSymbol = -1121

var invalidSymbolPattern = regexp.MustCompile(`(?i)invalid symbol`)

// KlinesRequest is one page request against /api/v3/klines.
type KlinesRequest struct {
	Symbol    string
	Interval  string
	StartTime int64 // epoch ms, inclusive
	EndTime   int64 // epoch ms, inclusive
	Limit     int
}

// Kline is one row in Binance's positional layout:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, takerBase, takerQuote, ignore].
// Numbers decode as json.Number, prices as strings.
type Kline []any

const klineMinFields = 6

// OpenTime returns the bar's open time in epoch milliseconds.
func (k Kline) OpenTime() (int64, error) {
	if len(k) == 0 {
		return 0, fmt.Errorf("empty kline row")
	}
	switch v := k[0].(type) {
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected open time type %T", v)
	}
}

func (k Kline) decimalAt(i int) decimal.NullDecimal {
	if i >= len(k) {
		return decimal.NullDecimal{}
	}
	var s string
	switch v := k[i].(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	default:
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Bar converts the row; the time is the open time rendered in UTC.
func (k Kline) Bar() (provider.Bar, error) {
	openTime, err := k.OpenTime()
	if err != nil {
		return provider.Bar{}, err
	}
	return provider.Bar{
		Time:   provider.DisplayTime(openTime),
		Open:   k.decimalAt(1),
		High:   k.decimalAt(2),
		Low:    k.decimalAt(3),
		Close:  k.decimalAt(4),
		Volume: k.decimalAt(5),
	}, nil
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Klines fetches a single page.
func (c *Client) Klines(ctx context.Context, r KlinesRequest) ([]Kline, error) {
	if err := ratelimit.Acquire(ctx, c.limiter, "binance"); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("symbol", r.Symbol)
	query.Set("interval", r.Interval)
	query.Set("startTime", strconv.FormatInt(r.StartTime, 10))
	query.Set("endTime", strconv.FormatInt(r.EndTime, 10))
	query.Set("limit", strconv.Itoa(r.Limit))

	u := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, provider.Wrap(provider.KindProviderError, err, "performing binance klines request")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, c.statusError(res, r.Symbol)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, provider.Wrap(provider.KindProviderError, err, "reading binance klines response")
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, provider.Errorf(provider.KindMalformedResponse, "binance klines response is not an array")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows []Kline
	if err := dec.Decode(&rows); err != nil {
		return nil, provider.Wrap(provider.KindMalformedResponse, err, "decoding binance klines response")
	}
	for i, row := range rows {
		if len(row) < klineMinFields {
			return nil, provider.Errorf(provider.KindMalformedResponse, "binance kline row %d has %d fields, want at least %d", i, len(row), klineMinFields)
		}
	}
	return rows, nil
}

func (c *Client) statusError(res *http.Response, symbol string) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	text := strings.TrimSpace(string(b))

	var apiErr apiError
	if err := json.Unmarshal(b, &apiErr); err == nil && (apiErr.Code != 0 || apiErr.Msg != "") {
		if apiErr.Code == codeInvalidSymbol || invalidSymbolPattern.MatchString(apiErr.Msg) {
			return InvalidSymbolError(symbol)
		}
		msg := apiErr.Msg
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", res.StatusCode)
		}
		return provider.Errorf(provider.KindProviderError, "binance klines request failed: %d - %s", res.StatusCode, msg)
	}
	if text == "" {
		return provider.Errorf(provider.KindProviderError, "binance klines request failed: %d", res.StatusCode)
	}
	return provider.Errorf(provider.KindProviderError, "binance klines request failed: %d - %s", res.StatusCode, text)
}

// InvalidSymbolError explains an unknown pair and the accepted notations.
func InvalidSymbolError(symbol string) error {
	return provider.Errorf(provider.KindInvalidSymbol,
		"binance invalid symbol: %s. The pair does not exist on Binance or has been delisted; use a valid pair such as BTCUSDT, ETHUSDT or SOLUSDT. BTC-USDT, BTC/USDT and coinid.USDT notations are also accepted",
		symbol)
}
