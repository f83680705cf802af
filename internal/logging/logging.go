// Package logging builds the process-wide slog.Logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/yamdb/internal/config"
)

// New returns a logger writing to w in the configured format ("text" or
// "json") at the configured level. Unknown levels fall back to info.
func New(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
