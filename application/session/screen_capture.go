package session

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"webharness-go/infrastructure/browser"
)

// ScreenCapture writes driver screenshots into the artifact directory.
type ScreenCapture struct {
	driver  browser.Driver
	logger  *slog.Logger
	saveDir string
}

// NewScreenCapture creates a new screen capture service.
func NewScreenCapture(driver browser.Driver, saveDir string, logger *slog.Logger) *ScreenCapture {
	if logger == nil {
		logger = slog.Default()
	}
	if saveDir == "" {
		saveDir = "."
	}
	return &ScreenCapture{
		driver:  driver,
		logger:  logger,
		saveDir: saveDir,
	}
}

// CaptureToFile captures the viewport and saves it as {saveDir}/{name}.png.
func (s *ScreenCapture) CaptureToFile(ctx context.Context, name string) (string, error) {
	if s.driver == nil || !s.driver.IsRunning() {
		return "", browser.ErrNotRunning
	}

	data, err := s.driver.CaptureScreenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("screenshot is not a PNG: %w", err)
	}

	if err := os.MkdirAll(s.saveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	filename := filepath.Join(s.saveDir, name+".png")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	s.logger.Debug("Screenshot saved", "filename", filename, "bytes", len(data))
	return filename, nil
}
