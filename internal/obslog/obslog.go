// Package obslog builds the process-wide structured logger and wires it
// into both slog.SetDefault and sipgo's own SetDefaultLogger, so every
// package's "logger == nil -> slog.Default()" fallback and sipgo's
// internal logging end up on the same handler.
package obslog

import (
	"log/slog"
	"os"
	"strings"

	"github.com/emiago/sipgo/sip"
)

// Format selects the slog handler.
type Format string

const (
	// FormatText is human-readable, for local/interactive runs.
	FormatText Format = "text"
	// FormatJSON is structured, for production log pipelines.
	FormatJSON Format = "json"
)

// ParseLevel parses a string into an slog.Level, defaulting to Info for
// anything unrecognized since this process runs unattended.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// ParseFormat parses a string into a Format, defaulting to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Init builds the process-wide logger, installs it as slog's default,
// and hands it to sipgo so transport/transaction logging shares the
// same handler and level.
func Init(level slog.Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	sip.SetDefaultLogger(logger)
	return logger
}
