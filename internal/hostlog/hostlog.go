// Package hostlog builds the structured logger shared by the host tools.
package hostlog

import (
	"io"
	"log/slog"
	"os"
)

// DebugEnv enables debug logging when set to "true".
const DebugEnv = "SCOREBOARD_DEBUG"

// Debug reports whether DebugEnv asks for verbose logging.
func Debug() bool {
	return os.Getenv(DebugEnv) == "true"
}

// New returns a text logger on w tagged with the tool name.
func New(w io.Writer, name string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("tool", name)
}
