package provider

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// MarketType selects which adapter serves a query.
type MarketType string

const (
	MarketCN     MarketType = "cn"
	MarketCrypto MarketType = "crypto"
)

// ParseMarketType accepts "cn" or "crypto" in any case, surrounding spaces ignored.
func ParseMarketType(raw string) (MarketType, error) {
	switch m := MarketType(strings.ToLower(strings.TrimSpace(raw))); m {
	case MarketCN, MarketCrypto:
		return m, nil
	}
	return "", Errorf(KindUnsupportedMarket, "unsupported market_type %q, only 'cn' or 'crypto' are supported", raw)
}

// Query is a fully normalized minute-bar request.
type Query struct {
	Code   string
	Market MarketType
	Start  Timestamp
	End    Timestamp
	Freq   Frequency
}

// Bar is the normalized shape returned by all adapters.
// Time uses the "2006-01-02 15:04:05" layout so bars from either provider sort as strings.
// Numeric fields are invalid when the provider value was missing or unparsable.
type Bar struct {
	Time   string
	Open   decimal.NullDecimal
	High   decimal.NullDecimal
	Low    decimal.NullDecimal
	Close  decimal.NullDecimal
	Volume decimal.NullDecimal
	Amount decimal.NullDecimal
}

// Credentials carries caller-scoped secrets into the adapters that need them.
type Credentials struct {
	TushareToken string
}

// WithFallback fills empty fields from def.
func (c Credentials) WithFallback(def Credentials) Credentials {
	if strings.TrimSpace(c.TushareToken) == "" {
		c.TushareToken = def.TushareToken
	}
	return c
}

// Fetcher retrieves bars for one market.
type Fetcher interface {
	Name() string
	FetchBars(ctx context.Context, creds Credentials, q Query) ([]Bar, error)
}

// Namer is implemented by fetchers that can resolve instrument codes to display names.
type Namer interface {
	CodeNames(ctx context.Context, creds Credentials, codes []string) (map[string]string, error)
}
