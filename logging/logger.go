package logging

import (
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes leveled messages tagged with the component and operation that
// produced them.
type Logger interface {
	Debug(component, op, msg string)
	Info(component, op, msg string)
	Warn(component, op, msg string)
	Error(component, op, msg string)
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	WithTraceID(traceID string) Logger
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Component string    `json:"component"`
	Op        string    `json:"op"`
	Message   string    `json:"message"`
	Fields    Fields    `json:"fields,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	TraceID   string    `json:"trace_id,omitempty"`
}

type LoggerConfig struct {
	Output    io.Writer
	Formatter Formatter
	Level     LogLevel
	Sanitize  bool
}

type StandardLogger struct {
	sink     *output
	level    LogLevel
	sanitize bool
	fields   Fields
	err      error
	traceID  string
	now      func() time.Time
}

// output is shared by a logger and everything derived from it so writes stay
// serialized.
type output struct {
	mu        sync.Mutex
	w         io.Writer
	formatter Formatter
}

func NewLogger(cfg LoggerConfig) *StandardLogger {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	formatter := cfg.Formatter
	if formatter == nil {
		formatter = NewHumanFormatter(w)
	}
	return &StandardLogger{
		sink:     &output{w: w, formatter: formatter},
		level:    cfg.Level,
		sanitize: cfg.Sanitize,
		fields:   Fields{},
		now:      time.Now,
	}
}

func (l *StandardLogger) Debug(component, op, msg string) { l.log(DEBUG, component, op, msg) }
func (l *StandardLogger) Info(component, op, msg string)  { l.log(INFO, component, op, msg) }
func (l *StandardLogger) Warn(component, op, msg string)  { l.log(WARN, component, op, msg) }
func (l *StandardLogger) Error(component, op, msg string) { l.log(ERROR, component, op, msg) }

func (l *StandardLogger) log(level LogLevel, component, op, msg string) {
	if !level.ShouldLog(l.level) {
		return
	}

	fields := l.fields
	if l.sanitize {
		fields = fields.Sanitize()
	}
	entry := LogEntry{
		Timestamp: l.now(),
		Level:     level,
		Component: component,
		Op:        op,
		Message:   msg,
		Fields:    fields,
		TraceID:   l.traceID,
	}
	if l.err != nil {
		entry.Error = l.err.Error()
		entry.ErrorType = ErrorType(l.err)
	}

	data, err := l.sink.formatter.Format(entry)
	if err != nil {
		return
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	_, _ = l.sink.w.Write(data)
}

func (l *StandardLogger) derive() *StandardLogger {
	c := *l
	return &c
}

func (l *StandardLogger) WithFields(fields Fields) Logger {
	c := l.derive()
	c.fields = l.fields.Merge(fields)
	return c
}

func (l *StandardLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	c := l.derive()
	c.err = err
	return c
}

func (l *StandardLogger) WithTraceID(traceID string) Logger {
	c := l.derive()
	c.traceID = traceID
	return c
}

type NopLogger struct{}

func (NopLogger) Debug(component, op, msg string)   {}
func (NopLogger) Info(component, op, msg string)    {}
func (NopLogger) Warn(component, op, msg string)    {}
func (NopLogger) Error(component, op, msg string)   {}
func (n NopLogger) WithFields(fields Fields) Logger { return n }
func (n NopLogger) WithError(err error) Logger      { return n }
func (n NopLogger) WithTraceID(traceID string) Logger {
	return n
}
