package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// jsonLogger writes one JSON object per line.
type jsonLogger struct {
	level LogLevel
	out   *lockedWriter
	base  []Field
}

// lockedWriter is shared by a logger and everything derived from it with With.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogger creates a structured logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{
		level: ParseLogLevel(level),
		out:   &lockedWriter{w: w},
	}
}

// With returns a logger that adds fields to every entry.
func (l *jsonLogger) With(fields ...Field) Logger {
	base := make([]Field, 0, len(l.base)+len(fields))
	base = append(base, l.base...)
	base = append(base, fields...)
	return &jsonLogger{level: l.level, out: l.out, base: base}
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *jsonLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.base)+len(fields)+5)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			entry["trace_id"] = sc.TraceID().String()
			entry["span_id"] = sc.SpanID().String()
		}
	}

	for _, f := range l.base {
		entry[f.Key] = redact(f)
	}
	for _, f := range fields {
		entry[f.Key] = redact(f)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	_, _ = l.out.w.Write(data)
}

func redact(f Field) any {
	if isRedactedField(f.Key) {
		return "[REDACTED]"
	}
	if err, ok := f.Value.(error); ok {
		return err.Error()
	}
	return f.Value
}

func isRedactedField(key string) bool {
	key = strings.ToLower(key)
	for _, r := range RedactedFields {
		if key == r {
			return true
		}
	}
	return false
}

var _ Logger = (*jsonLogger)(nil)
