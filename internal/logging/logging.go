// =============================================================================
// RPS Batch Decoder - Logging
// =============================================================================
//
// Logger is the printf-style interface every outer package logs through.
// The decoding core never logs: it returns diagnostics inside the result and
// the pipeline decides what to print.
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger is an interface for logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// New returns a Logger writing to w.
//
// PARAMETERS:
//   - w: The destination, normally os.Stderr.
//   - level: "debug", "info", "warn" or "error". Unknown levels mean info.
//   - format: "json" for one JSON object per line, anything else for text.
func New(w io.Writer, level, format string) Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &slogLogger{l: slog.New(h)}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...interface{}) { s.l.Debug(fmt.Sprintf(msg, args...)) }

func (s *slogLogger) Info(msg string, args ...interface{}) { s.l.Info(fmt.Sprintf(msg, args...)) }

func (s *slogLogger) Warn(msg string, args ...interface{}) { s.l.Warn(fmt.Sprintf(msg, args...)) }

func (s *slogLogger) Error(msg string, args ...interface{}) { s.l.Error(fmt.Sprintf(msg, args...)) }
