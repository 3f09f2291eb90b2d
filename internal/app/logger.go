package app

import (
	"io"
	"log/slog"
)

// logLevels maps the level names the CLI accepts to slog levels. The
// zero slog.Level is info, so an unknown or empty name falls out as info.
var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the app's own logger instance without touching the
// process-wide default. Level and format arrive already validated by the
// CLI layer; json is the default format.
func newLogger(level, format string, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevels[level]}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(outW, opts)
	} else {
		handler = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(handler)
}
