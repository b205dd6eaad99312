//go:build !prod

package logging

import (
	"log/slog"
	"os"
)

// Setup installs a stderr-only process logger. The returned close func is
// a no-op.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := install(slog.New(newHandler(os.Stderr, cfg)))
	return logger, func() error { return nil }, nil
}
