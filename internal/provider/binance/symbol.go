package binance

import (
	"strings"

	"financemcp/internal/provider"
)

// quoteAssets is the whitelist of quote currencies, in the order they are reported.
var quoteAssets = []string{"USDT", "USDC", "FDUSD", "TUSD", "BUSD", "BTC", "ETH"}

// coinIDs maps aggregator coin ids (the "coinid.QUOTE" notation) to exchange tickers.
var coinIDs = map[string]string{
	"bitcoin":          "BTC",
	"ethereum":         "ETH",
	"tether":           "USDT",
	"usd-coin":         "USDC",
	"solana":           "SOL",
	"binancecoin":      "BNB",
	"ripple":           "XRP",
	"cardano":          "ADA",
	"polkadot":         "DOT",
	"chainlink":        "LINK",
	"litecoin":         "LTC",
	"shiba-inu":        "SHIB",
	"tron":             "TRX",
	"toncoin":          "TON",
	"bitcoin-cash":     "BCH",
	"ethereum-classic": "ETC",
}

// ResolveSymbol turns BTCUSDT, BTC-USDT, BTC/USD or bitcoin.USDT into an exchange symbol.
// Codes without a separator are only upper-cased.
func ResolveSymbol(raw string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return "", provider.Errorf(provider.KindInvalidSymbol, "empty crypto symbol")
	}

	var sep string
	for _, s := range []string{"-", "/", "."} {
		if strings.Contains(upper, s) {
			sep = s
			break
		}
	}
	if sep == "" {
		return upper, nil
	}

	parts := strings.Split(upper, sep)
	base, quote := parts[0], parts[1]
	if sep == "." {
		if ticker, ok := coinIDs[strings.ToLower(base)]; ok {
			base = ticker
		}
	}
	if base == "" {
		return "", provider.Errorf(provider.KindInvalidSymbol, "crypto symbol %q has no base asset", raw)
	}
	if quote == "USD" {
		quote = "USDT"
	}
	if !isQuoteAsset(quote) {
		return "", provider.Errorf(provider.KindUnsupportedQuoteAsset, "unsupported quote asset %q, supported: %s", quote, strings.Join(quoteAssets, ", "))
	}
	return base + quote, nil
}

func isQuoteAsset(q string) bool {
	for _, a := range quoteAssets {
		if a == q {
			return true
		}
	}
	return false
}

// Interval maps a canonical frequency to the klines interval token.
func Interval(f provider.Frequency) (string, error) {
	switch f {
	case provider.Freq1Min:
		return "1m", nil
	case provider.Freq5Min:
		return "5m", nil
	case provider.Freq15Min:
		return "15m", nil
	case provider.Freq30Min:
		return "30m", nil
	case provider.Freq60Min:
		return "1h", nil
	}
	return "", provider.Errorf(provider.KindUnsupportedFrequency, "unsupported frequency %q for binance", f)
}
