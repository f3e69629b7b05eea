package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON to stdout, trace/span ids attached
// when the context carries a span. Debug level only in dev.
func NewLogger(env, service string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler)).With("service", service, "env", env)
}
