package provider

import "strings"

// Frequency is one of the five minute-bar intervals accepted system-wide.
type Frequency string

const (
	Freq1Min  Frequency = "1min"
	Freq5Min  Frequency = "5min"
	Freq15Min Frequency = "15min"
	Freq30Min Frequency = "30min"
	Freq60Min Frequency = "60min"
)

const allowedFrequencies = "1MIN/5MIN/15MIN/30MIN/60MIN"

// frequencyAliases maps lower-cased user tokens to canonical values.
var frequencyAliases = map[string]Frequency{
	"1min": Freq1Min, "1m": Freq1Min,
	"5min": Freq5Min, "5m": Freq5Min,
	"15min": Freq15Min, "15m": Freq15Min,
	"30min": Freq30Min, "30m": Freq30Min,
	"60min": Freq60Min, "60m": Freq60Min, "1h": Freq60Min,
}

// ParseFrequency maps a case-insensitive token such as "1MIN", "5m" or "1h" to a Frequency.
func ParseFrequency(raw string) (Frequency, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if f, ok := frequencyAliases[token]; ok {
		return f, nil
	}
	if f, ok := frequencyAliases[strings.Replace(token, "minute", "min", 1)]; ok {
		return f, nil
	}
	return "", Errorf(KindUnsupportedFrequency, "unsupported frequency %q, allowed: %s", raw, allowedFrequencies)
}

func (f Frequency) String() string { return string(f) }
