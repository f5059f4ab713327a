package common

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	level      = new(slog.LevelVar)
)

// Logger returns a singleton slog logger configured via the LOG_LEVEL
// environment variable.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		level.Set(levelFromEnv())
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		logger = slog.New(handler)
	})
	return logger
}

// SetDebug lowers the log level to debug when enabled and restores the
// environment-configured level otherwise. Used by the chat loop's
// `debug on` / `debug off` commands.
func SetDebug(enabled bool) {
	Logger()
	if enabled {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(levelFromEnv())
}

// DebugEnabled reports whether debug logging is currently active.
func DebugEnabled() bool {
	Logger()
	return level.Level() <= slog.LevelDebug
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
