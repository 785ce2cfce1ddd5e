package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

type Formatter interface {
	Format(entry LogEntry) ([]byte, error)
}

// NewFormatter picks the formatter by name: "json" or anything else for the
// human-readable one.
func NewFormatter(name string, w io.Writer) Formatter {
	if strings.EqualFold(name, "json") {
		return &JSONFormatter{}
	}
	return NewHumanFormatter(w)
}

type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry LogEntry) ([]byte, error) {
	out := map[string]any{
		"timestamp": entry.Timestamp.UTC().Format(time.RFC3339),
		"level":     entry.Level.String(),
		"component": entry.Component,
		"op":        entry.Op,
		"message":   entry.Message,
	}
	if len(entry.Fields) > 0 {
		out["fields"] = entry.Fields
	}
	if entry.Error != "" {
		out["error"] = entry.Error
		out["error_type"] = entry.ErrorType
	}
	if entry.TraceID != "" {
		out["trace_id"] = entry.TraceID
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return append(data, '\n'), nil
}

type HumanFormatter struct {
	colorEnabled bool
}

func NewHumanFormatter(w io.Writer) *HumanFormatter {
	colorEnabled := false
	if f, ok := w.(*os.File); ok {
		colorEnabled = isatty.IsTerminal(f.Fd())
	}
	return &HumanFormatter{colorEnabled: colorEnabled}
}

func (f *HumanFormatter) Format(entry LogEntry) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s] %s: %s",
		entry.Timestamp.Format("15:04:05"), f.colorLevel(entry.Level), entry.Component, entry.Op, entry.Message)

	for _, k := range entry.Fields.Keys() {
		fmt.Fprintf(&b, " %s=%v", k, entry.Fields[k])
	}
	if entry.Error != "" {
		fmt.Fprintf(&b, " error=%q", entry.Error)
	}
	if entry.TraceID != "" {
		fmt.Fprintf(&b, " trace_id=%s", entry.TraceID)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *HumanFormatter) colorLevel(l LogLevel) string {
	name := fmt.Sprintf("%-5s", l.String())
	if !f.colorEnabled {
		return name
	}

	var color string
	switch l {
	case DEBUG:
		color = "\033[36m" // cyan
	case INFO:
		color = "\033[32m" // green
	case WARN:
		color = "\033[33m" // yellow
	case ERROR:
		color = "\033[31m" // red
	default:
		return name
	}
	return color + name + "\033[0m"
}
