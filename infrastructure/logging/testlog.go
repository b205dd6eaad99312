package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// TestLog is the per-test diagnostics file. Every debug and error line
// of one test session goes to {dir}/{loggerID}.txt.
type TestLog struct {
	path      string
	writer    *lumberjack.Logger
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// OpenTestLog creates the log file and writes the first line so the file
// exists even if the test logs nothing else.
func OpenTestLog(dir, loggerID string) (*TestLog, error) {
	if loggerID == "" {
		return nil, fmt.Errorf("logger id is required")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, loggerID+".txt")
	w := &lumberjack.Logger{
		Filename:  path,
		MaxSize:   100,
		LocalTime: true,
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Debug("Logger setup complete.", "logger_id", loggerID)

	if _, err := os.Stat(path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to open test log: %w", err)
	}

	return &TestLog{path: path, writer: w, logger: logger}, nil
}

// Logger returns the debug-level logger bound to the file.
func (l *TestLog) Logger() *slog.Logger {
	return l.logger
}

// Path returns the log file path.
func (l *TestLog) Path() string {
	return l.path
}

// Close flushes and closes the file. Safe to call more than once.
func (l *TestLog) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.writer.Close()
	})
	return l.closeErr
}
