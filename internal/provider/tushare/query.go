package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"financemcp/internal/provider"
	"financemcp/internal/provider/ratelimit"
)

// Table is the column-described payload Tushare returns for every api_name.
type Table struct {
	Fields []string `json:"fields"`
	Items  [][]any  `json:"items"`
}

// Column returns the index of the first alias present in Fields, or -1.
func (t *Table) Column(aliases ...string) int {
	for _, alias := range aliases {
		for i, f := range t.Fields {
			if f == alias {
				return i
			}
		}
	}
	return -1
}

// Empty reports whether the table carries no rows to map.
func (t *Table) Empty() bool {
	return t == nil || len(t.Fields) == 0 || len(t.Items) == 0
}

type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields,omitempty"`
}

type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *Table `json:"data"`
}

// Query posts one api_name call. Numbers in the returned rows are json.Number.
func (c *Client) Query(ctx context.Context, token, apiName string, params map[string]string, fields string) (*Table, error) {
	if err := ratelimit.Acquire(ctx, c.limiter, "tushare"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if params == nil {
		params = map[string]string{}
	}
	body, err := json.Marshal(request{APIName: apiName, Token: token, Params: params, Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("tushare request", "api_name", apiName, "params", params)
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, apiName, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, provider.Errorf(provider.KindProviderError, "tushare HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	var api response
	if err := dec.Decode(&api); err != nil {
		if ctx.Err() != nil {
			return nil, c.transportError(ctx, apiName, err)
		}
		return nil, provider.Wrap(provider.KindMalformedResponse, err, "decoding tushare %s response", apiName)
	}
	if api.Code != 0 {
		msg := strings.TrimSpace(api.Msg)
		if msg == "" {
			msg = "unknown error"
		}
		return nil, provider.Errorf(provider.KindProviderError, "tushare API error (code %d): %s", api.Code, msg)
	}
	if api.Data == nil {
		return &Table{}, nil
	}
	return api.Data, nil
}

func (c *Client) transportError(ctx context.Context, apiName string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return provider.Wrap(provider.KindTimeout, err, "tushare %s request timed out after %s", apiName, c.timeout)
	}
	return provider.Wrap(provider.KindProviderError, err, "performing tushare %s request", apiName)
}

// StockBasic resolves ts_codes to company names (full name when available).
// Codes are matched case-insensitively; unknown codes are absent from the result.
func (c *Client) StockBasic(ctx context.Context, token string, codes []string) (map[string]string, error) {
	want := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		want[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	if len(want) == 0 {
		return map[string]string{}, nil
	}

	table, err := c.Query(ctx, token, "stock_basic", nil, "ts_code,name,fullname")
	if err != nil {
		return nil, err
	}
	codeIdx := table.Column("ts_code")
	nameIdx := table.Column("name")
	fullIdx := table.Column("fullname")
	out := make(map[string]string, len(want))
	if table.Empty() || codeIdx < 0 {
		return out, nil
	}
	for _, row := range table.Items {
		code := strings.ToUpper(cellString(row, codeIdx))
		if _, ok := want[code]; !ok {
			continue
		}
		name := cellString(row, fullIdx)
		if name == "" {
			name = cellString(row, nameIdx)
		}
		if name != "" {
			out[code] = name
		}
	}
	return out, nil
}
