// Package logging provides the process logger and per-test log files.
// Release builds (tag prod) also keep a rotating process log file; other
// builds log to stderr only.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the process log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config controls the process logger. Per-test logs ignore it and always
// record at debug level.
type Config struct {
	Level  slog.Level
	Format Format

	// Dir holds webharness.log in prod builds. Empty means DefaultLogDir().
	Dir string

	// Rotation limits for the prod log file.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	AddSource bool
}

// DefaultConfig returns the settings used when no config is supplied.
func DefaultConfig() *Config {
	return &Config{
		Level:      slog.LevelInfo,
		Format:     FormatText,
		MaxSizeMB:  50,
		MaxBackups: 10,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// DefaultLogDir is <user cache dir>/webharness/logs, or the same path under
// the temp dir when there is no cache dir.
func DefaultLogDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "webharness", "logs")
}

// ParseLevel maps debug/info/warn/error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat accepts "text" or "json"; empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

func newHandler(w io.Writer, cfg *Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var processLogger *slog.Logger

// L returns the logger installed by Setup, or slog.Default() before that.
func L() *slog.Logger {
	if processLogger == nil {
		return slog.Default()
	}
	return processLogger
}

func install(logger *slog.Logger) *slog.Logger {
	processLogger = logger
	slog.SetDefault(logger)
	return logger
}
