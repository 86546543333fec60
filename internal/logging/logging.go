// Package logging provides structured logging for the agent runtime.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel converts a config string to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger writes leveled, structured log lines. Loggers derived with
// WithComponent or WithTraceID share the parent's output and level.
type Logger struct {
	base      *slog.Logger
	level     *slog.LevelVar
	component string
	traceID   string
}

// New creates a Logger writing colored output to stderr at info level.
func New() *Logger {
	return NewWithOutput(os.Stderr, LevelInfo, false)
}

// NewWithOutput creates a Logger writing to w.
func NewWithOutput(w io.Writer, level Level, noColor bool) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())
	handler := tint.NewHandler(w, &tint.Options{
		Level:      lv,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    noColor,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	})
	return &Logger{base: slog.New(handler), level: lv}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithOutput(io.Discard, LevelError, true)
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		base:      l.base,
		level:     l.level,
		component: component,
		traceID:   l.traceID,
	}
}

// WithTraceID returns a new logger tagged with a run/trace id.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{
		base:      l.base,
		level:     l.level,
		component: l.component,
		traceID:   traceID,
	}
}

// SetLevel sets the minimum log level. Affects all derived loggers.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slogLevel())
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(slog.LevelError, msg, fields...)
}

func (l *Logger) log(level slog.Level, msg string, fields ...map[string]interface{}) {
	var attrs []slog.Attr
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.traceID != "" {
		attrs = append(attrs, slog.String("trace_id", l.traceID))
	}
	if len(fields) > 0 && fields[0] != nil {
		// map order is random; keep lines stable
		keys := make([]string, 0, len(fields[0]))
		for k := range fields[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, fields[0][k]))
		}
	}
	l.base.LogAttrs(context.Background(), level, msg, attrs...)
}

// ToolCall logs a tool invocation. Arguments are not logged.
func (l *Logger) ToolCall(tool string) {
	l.Info("tool_call", map[string]interface{}{
		"tool": tool,
	})
}

// ToolResult logs a tool result.
func (l *Logger) ToolResult(tool string, duration time.Duration, errCode string) {
	fields := map[string]interface{}{
		"tool":     tool,
		"duration": duration.String(),
	}
	if errCode != "" {
		fields["error"] = errCode
		l.Warn("tool_error", fields)
	} else {
		l.Debug("tool_result", fields)
	}
}

// SecurityDeny logs a gateway rejection.
func (l *Logger) SecurityDeny(tool, reason, detail string) {
	l.Warn("security_deny", map[string]interface{}{
		"tool":     tool,
		"reason":   reason,
		"detail":   detail,
		"security": true,
	})
}

// RunStart logs the start of a run.
func (l *Logger) RunStart(runID string, maxSteps int) {
	l.Info("run_start", map[string]interface{}{
		"run_id":    runID,
		"max_steps": maxSteps,
	})
}

// RunComplete logs the end of a run.
func (l *Logger) RunComplete(runID string, duration time.Duration, status string, steps int) {
	l.Info("run_complete", map[string]interface{}{
		"run_id":   runID,
		"duration": duration.String(),
		"status":   status,
		"steps":    steps,
	})
}
