// Package log wraps slog with component-scoped loggers for the app.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Standard field names.
const (
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldTable     = "table"
	FieldRecordID  = "record_id"
	FieldDuration  = "duration_ms"
	FieldBackend   = "backend"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStore   = "store"
	ComponentSync    = "sync"
	ComponentFeed    = "feed"
	ComponentSession = "session"
	ComponentFamily  = "family"
	ComponentAdvisor = "advisor"
	ComponentCache   = "cache"
)

// Logger is a slog.Logger that stamps every record with its component.
type Logger struct {
	*slog.Logger
	component string
}

// Setup installs a tint handler on stderr as the process default and
// returns the root logger. Level comes from LOG_LEVEL (debug|info|warn|error).
func Setup(component string) *Logger {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      levelFromEnv(),
		TimeFormat: time.Kitchen,
	})
	root := slog.New(handler)
	slog.SetDefault(root)
	return &Logger{Logger: root, component: component}
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New wraps an existing slog.Logger with a component name. A nil logger
// falls back to the process default.
func New(base *slog.Logger, component string) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{Logger: base, component: component}
}

// WithComponent returns a logger stamped with a different component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger, component: component}
}

// With returns a logger carrying extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

func (l *Logger) Component() string { return l.component }

func (l *Logger) stamp(args []any) []any {
	return append([]any{FieldComponent, l.component}, args...)
}

func (l *Logger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.stamp(args)...) }
func (l *Logger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.stamp(args)...) }
func (l *Logger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.stamp(args)...) }
func (l *Logger) Error(msg string, args ...any) { l.Logger.Error(msg, l.stamp(args)...) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.Logger.DebugContext(ctx, msg, l.stamp(args)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Logger.InfoContext(ctx, msg, l.stamp(args)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.Logger.WarnContext(ctx, msg, l.stamp(args)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Logger.ErrorContext(ctx, msg, l.stamp(args)...)
}
