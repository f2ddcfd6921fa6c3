package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxKey struct{}

// SetupJSON sets slog's default logger to use JSON output at the given level.
// env is attached to every record when non-empty.
func SetupJSON(level slog.Level, env string) *slog.Logger {
	return setup(os.Stdout, level, env)
}

func setup(w io.Writer, level slog.Level, env string) *slog.Logger {
	logger := slog.New(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
	)

	if env != "" {
		logger = logger.With("env", env)
	}

	slog.SetDefault(logger)

	return logger
}

// WithContext stores a request scoped logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by WithContext, or the default one.
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if ok && logger != nil {
		return logger
	}

	return slog.Default()
}
