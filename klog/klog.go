// Package klog is the kernel's ambient logging glue: a thin wrapper over
// github.com/joeycumines/logiface, backed by
// github.com/joeycumines/logiface-slog so the kernel emits structured
// log/slog output without depending on slog directly in its call sites.
// The kernel only ever logs off the hot tick path, at Debug level: task
// creation and deletion, event-group set and delete, and timer-daemon
// command dispatch. Priority changes and task suspend/resume are not
// logged.
package klog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/joeycumines/logiface"
	slogadapter "github.com/joeycumines/logiface-slog"
)

// Logger wraps a logiface.Logger, exposing a small keyvals-style API so
// call sites in kernel/eventgroup/swtimer don't need to learn
// logiface's fluent builder directly.
type Logger struct {
	l *logiface.Logger[*slogadapter.Event]
}

// New builds a Logger writing to handler via logiface-slog.
func New(handler slog.Handler) *Logger {
	return &Logger{
		l: logiface.New[*slogadapter.Event](slogadapter.NewLogger(handler)),
	}
}

// NewNop returns a Logger that discards everything, for callers that
// don't want kernel logging (e.g. most tests).
func NewNop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Default returns a Logger writing text-formatted records to stderr at
// info level and above.
func Default() *Logger {
	return New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func (g *Logger) emit(ctx context.Context, level logiface.Level, msg string, keyvals []string) {
	if g == nil || g.l == nil {
		return
	}
	b := g.l.Build(level)
	for i := 0; i+1 < len(keyvals); i += 2 {
		b = b.Str(keyvals[i], keyvals[i+1])
	}
	_ = ctx
	b.Log(msg)
}

// Debug logs at logiface.LevelDebug. keyvals must come in key, value
// pairs; a trailing unpaired key is dropped.
func (g *Logger) Debug(ctx context.Context, msg string, keyvals ...string) {
	g.emit(ctx, logiface.LevelDebug, msg, keyvals)
}

// Info logs at logiface.LevelInformational.
func (g *Logger) Info(ctx context.Context, msg string, keyvals ...string) {
	g.emit(ctx, logiface.LevelInformational, msg, keyvals)
}

// Warn logs at logiface.LevelWarning.
func (g *Logger) Warn(ctx context.Context, msg string, keyvals ...string) {
	g.emit(ctx, logiface.LevelWarning, msg, keyvals)
}
