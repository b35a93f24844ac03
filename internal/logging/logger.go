package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Options configures the process logger.
type Options struct {
	// Level is one of debug, info, warn or error. Unknown values mean info.
	Level string
	// Development switches to a human-readable text handler.
	Development bool
	// SentryDSN, when set, also forwards error records to Sentry.
	SentryDSN   string
	Environment string
	Writer      io.Writer
}

// New builds the process logger and returns a flush function to call on shutdown.
func New(opts Options) (*slog.Logger, func(), error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var base slog.Handler
	if opts.Development {
		base = slog.NewTextHandler(w, handlerOpts)
	} else {
		handlerOpts.AddSource = true
		base = slog.NewJSONHandler(w, handlerOpts)
	}

	flush := func() {}
	if opts.SentryDSN == "" {
		return slog.New(base), flush, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.SentryDSN,
		Environment: opts.Environment,
	}); err != nil {
		return nil, flush, fmt.Errorf("init sentry: %w", err)
	}

	handler := slogmulti.Fanout(
		base,
		slogsentry.Option{Level: slog.LevelError}.NewSentryHandler(),
	)
	flush = func() { sentry.Flush(2 * time.Second) }

	return slog.New(handler), flush, nil
}

// ParseLevel maps a textual level onto slog levels.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
