// Package clock implements the current_timestamp tool, which reports the current time in
// China Standard Time so callers can build minute-bar ranges relative to "now".
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"financemcp/internal/mcp"
	"financemcp/internal/provider"
	"financemcp/internal/slogx"
)

// Name is the tool name exposed over MCP.
const Name = "current_timestamp"

// ErrorPrefix starts the text of every failed result.
const ErrorPrefix = "Failed to get current time: "

// Zone is UTC+8 without DST. A fixed zone avoids depending on the host's tzdata.
var Zone = time.FixedZone("UTC+8", 8*60*60)

// Format selects how the time is printed.
type Format string

const (
	FormatDatetime  Format = "datetime"
	FormatDate      Format = "date"
	FormatTime      Format = "time"
	FormatTimestamp Format = "timestamp"
	FormatReadable  Format = "readable"
)

// ParseFormat is case-insensitive. Empty or unknown values fall back to FormatDatetime.
func ParseFormat(raw string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatDate, FormatTime, FormatTimestamp, FormatReadable:
		return f
	default:
		return FormatDatetime
	}
}

// Args are the raw tool arguments.
type Args struct {
	Format string `json:"format"`
}

// Tool reports the current UTC+8 time.
type Tool struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Tool.
type Option func(*Tool)

// WithNow replaces time.Now.
func WithNow(now func() time.Time) Option {
	return func(t *Tool) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tool) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func NewTool(opts ...Option) *Tool {
	t := &Tool{now: time.Now, logger: slogx.Discard()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tool) Definition() mcp.ToolDefinition {
	return mcp.ToolDefinition{
		Name:        Name,
		Description: "Get the current time in China Standard Time (UTC+8), including the date, time and weekday.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"format": map[string]any{
					"type":        "string",
					"description": "Output format: datetime (default), date, time, timestamp (Unix seconds) or readable",
					"enum":        []string{string(FormatDatetime), string(FormatDate), string(FormatTime), string(FormatTimestamp), string(FormatReadable)},
				},
			},
		},
	}
}

// Call ignores credentials.
func (t *Tool) Call(_ context.Context, _ provider.Credentials, raw json.RawMessage) mcp.ToolResult {
	var args Args
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			t.logger.Warn("current_timestamp bad arguments", "error", err)
			return mcp.ErrorResult(ErrorPrefix + "invalid arguments: " + err.Error())
		}
	}
	return mcp.TextResult(Render(t.now(), ParseFormat(args.Format)))
}

// Render prints now in Zone as a short markdown report.
func Render(now time.Time, f Format) string {
	local := now.In(Zone)
	stamp := local.Format(time.DateTime)

	var value string
	switch f {
	case FormatDate:
		value = local.Format(time.DateOnly)
	case FormatTime:
		value = local.Format(time.TimeOnly)
	case FormatTimestamp:
		value = strconv.FormatInt(local.Unix(), 10)
	case FormatReadable:
		value = local.Format("Monday, January 2, 2006 15:04:05")
	default:
		f, value = FormatDatetime, stamp
	}

	var b strings.Builder
	b.WriteString("# Current time (UTC+8)\n\n")
	fmt.Fprintf(&b, "Format: %s\n", f)
	fmt.Fprintf(&b, "Time: %s\n", value)
	fmt.Fprintf(&b, "Weekday: %s\n", local.Weekday())
	fmt.Fprintf(&b, "\nRetrieved at %s UTC+8\n", stamp)
	return b.String()
}
