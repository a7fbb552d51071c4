// Package logger builds the service's slog logger: JSON to stdout, request
// scoped attributes pulled from the context, and optional Sentry forwarding.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config controls handler construction.
type Config struct {
	Level             slog.Level
	SentryDSN         string
	SentryEnvironment string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// New returns a JSON logger. When SentryDSN is set, errors also become Sentry
// events and warnings become Sentry logs.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	stdout := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.Level})

	if cfg.SentryDSN == "" {
		return slog.New(newDecorator(stdout, extractors...))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(stdout).Error("failed to initialize sentry", slog.String("error", err.Error()))
		return slog.New(newDecorator(stdout, extractors...))
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(newDecorator(newMultiHandler(stdout, sentryHandler), extractors...))
}

// Flush waits for buffered Sentry events. Safe to call when Sentry is off.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// ParseLevel maps debug|info|warn|error onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewNope returns a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
