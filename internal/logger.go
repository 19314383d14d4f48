package internal

import (
	"context"
	"log/slog"
)

// Logger is an embeddable, nil-safe logging helper matching the pattern
// used throughout this module's protocol state machines: a *slog.Logger
// plus level-named convenience methods that route through LogAttrs so
// heap-allocation-debugging builds can intercept every log call.
type Logger struct {
	Log *slog.Logger
}

func (l *Logger) Enabled(lvl slog.Level) bool {
	return HeapAllocDebugging || (l.Log != nil && l.Log.Handler().Enabled(context.Background(), lvl))
}

func (l *Logger) Debug(msg string, attrs ...slog.Attr) {
	LogAttrs(l.Log, slog.LevelDebug, msg, attrs...)
}

func (l *Logger) Trace(msg string, attrs ...slog.Attr) {
	LogAttrs(l.Log, LevelTrace, msg, attrs...)
}

func (l *Logger) Warn(msg string, attrs ...slog.Attr) {
	LogAttrs(l.Log, slog.LevelWarn, msg, attrs...)
}

func (l *Logger) Error(msg string, attrs ...slog.Attr) {
	LogAttrs(l.Log, slog.LevelError, msg, attrs...)
}
