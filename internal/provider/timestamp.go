package provider

import (
	"strings"
	"time"
)

const (
	// TimestampLayout is the fixed-width canonical layout (YYYYMMDDHHMMSS).
	TimestampLayout = "20060102150405"
	// DisplayLayout is how bar times are rendered and compared.
	DisplayLayout = "2006-01-02 15:04:05"

	timestampWidth = len(TimestampLayout)
)

// Timestamp is a canonical 14-digit UTC date-time.
type Timestamp string

// NormalizeTimestamp accepts "20240102093000", "2024-01-02 09:30:00", "2024/01/02" and similar.
// Non-digits are dropped, the rest is right-padded with zeros and cut to 14 digits.
func NormalizeTimestamp(raw string) (Timestamp, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", Errorf(KindInvalidTimeFormat, "invalid datetime %q, use YYYYMMDDHHMMSS or YYYY-MM-DD HH:MM:SS", raw)
	}
	if len(digits) < timestampWidth {
		digits += strings.Repeat("0", timestampWidth-len(digits))
	}
	digits = digits[:timestampWidth]
	if _, err := time.ParseInLocation(TimestampLayout, digits, time.UTC); err != nil {
		return "", Wrap(KindInvalidTimeFormat, err, "invalid datetime %q, use YYYYMMDDHHMMSS or YYYY-MM-DD HH:MM:SS", raw)
	}
	return Timestamp(digits), nil
}

// ValidateRange requires end to be strictly after start.
func ValidateRange(start, end Timestamp) error {
	if end <= start {
		return Errorf(KindInvalidRange, "end datetime %s must be after start datetime %s", end, start)
	}
	return nil
}

// Time parses the timestamp as UTC. A zero time is returned for non-canonical values.
func (t Timestamp) Time() time.Time {
	v, err := time.ParseInLocation(TimestampLayout, string(t), time.UTC)
	if err != nil {
		return time.Time{}
	}
	return v
}

func (t Timestamp) UnixMilli() int64 { return t.Time().UnixMilli() }

func (t Timestamp) String() string { return string(t) }

// DisplayTime renders epoch milliseconds in DisplayLayout, UTC.
func DisplayTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DisplayLayout)
}
