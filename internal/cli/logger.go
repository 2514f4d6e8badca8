package cli

import (
	"io"
	"log/slog"

	"techkwiz-quiz-service/internal/config"
)

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
}
