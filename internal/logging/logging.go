// Package logging builds the structured logger every other package
// attaches its "component" attribute to.
package logging

import (
	"log/slog"
	"os"
)

// New configures a text-handler slog.Logger at the given level, with name
// attached as its "run" attribute.
func New(levelName string, name string) *slog.Logger {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With("run", name)
}
