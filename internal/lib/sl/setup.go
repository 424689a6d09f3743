package sl

import (
	"io"
	"log/slog"
)

// Setup создаёт логгер по окружению: текстовый с уровнем debug для local,
// JSON с уровнем info для остальных.
func Setup(env string, w io.Writer) *slog.Logger {
	if env == "local" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
