package minutes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"financemcp/internal/provider"
)

// NoData is shown instead of a table when the range holds no bars.
const NoData = "No data found for the given range."

// Report is everything the renderer needs.
type Report struct {
	Query    provider.Query
	Provider string
	// Name is the instrument's display name when it could be resolved.
	Name string
	Bars []provider.Bar
}

// Render formats r as markdown. Bars are shown newest first; r.Bars is not modified.
func Render(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s minute bars (%s, %s)\n\n", r.Query.Code, r.Query.Freq, r.Provider)
	if r.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "Range: %s - %s\n", r.Query.Start, r.Query.End)

	if len(r.Bars) == 0 {
		b.WriteString("\n" + NoData + "\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Rows: %d\n\n", len(r.Bars))

	bars := slices.Clone(r.Bars)
	slices.SortStableFunc(bars, func(x, y provider.Bar) int {
		return strings.Compare(y.Time, x.Time)
	})

	withAmount := slices.ContainsFunc(bars, func(bar provider.Bar) bool { return bar.Amount.Valid })
	headers := []string{"Time", "Open", "High", "Low", "Close", "Volume"}
	if withAmount {
		headers = append(headers, "Amount")
	}
	writeRow(&b, headers)
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "--------"
	}
	b.WriteString("|" + strings.Join(sep, "|") + "|\n")

	for _, bar := range bars {
		t := bar.Time
		if t == "" {
			t = "N/A"
		}
		cells := []string{t, num(bar.Open), num(bar.High), num(bar.Low), num(bar.Close), num(bar.Volume)}
		if withAmount {
			cells = append(cells, num(bar.Amount))
		}
		writeRow(&b, cells)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

// num renders two decimals, or N/A when the provider value was missing.
func num(d decimal.NullDecimal) string {
	if !d.Valid {
		return "N/A"
	}
	return d.Decimal.StringFixed(2)
}
