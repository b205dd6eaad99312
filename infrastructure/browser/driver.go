// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/chromedp/kb"
)

// Driver is the browser capability a test session consumes.
// Implementations are owned by exactly one session and are not shared.
type Driver interface {
	// Start launches the browser process.
	Start(ctx context.Context) error

	// Quit closes the browser and releases the process. Quitting a
	// driver that never started is a no-op.
	Quit() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// Navigate loads url in the current tab.
	Navigate(ctx context.Context, url string) error

	// FindElements returns every element currently matching sel.
	// It does not wait; zero matches is not an error.
	FindElements(ctx context.Context, sel Selector) ([]Element, error)

	// CaptureScreenshot returns the visible viewport as PNG bytes.
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// Element is a handle to one located DOM element. Handles go stale when
// the DOM node they point to is removed.
type Element interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	Text(ctx context.Context) (string, error)
	// Attribute returns the property or attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	CSSValue(ctx context.Context, property string) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	IsSelected(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	TagName(ctx context.Context) (string, error)
	// Options lists the options of a select element.
	Options(ctx context.Context) ([]Option, error)
	// SelectIndex selects the option at index i of a select element.
	SelectIndex(ctx context.Context, i int) error
}

// Option is one entry of a select element.
type Option struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// KeyEnter sends the Enter key through SendKeys.
const KeyEnter = kb.Enter

// By is a selector strategy.
type By int

const (
	ByXPath By = iota
	ByCSS
)

// Selector identifies zero or more elements in the rendered page.
type Selector struct {
	By    By
	Value string
}

// XPath returns an XPath selector.
func XPath(expr string) Selector {
	return Selector{By: ByXPath, Value: expr}
}

// CSS returns a CSS selector.
func CSS(expr string) Selector {
	return Selector{By: ByCSS, Value: expr}
}

func (s Selector) String() string {
	if s.By == ByCSS {
		return "css=" + s.Value
	}
	return "xpath=" + s.Value
}

// ParseSelector reads the "xpath=" / "css=" form produced by String.
// Expressions without a prefix are XPath when they start with "/" or "(",
// and CSS otherwise.
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Selector{}, fmt.Errorf("empty selector")
	case strings.HasPrefix(s, "xpath="):
		return XPath(strings.TrimPrefix(s, "xpath=")), nil
	case strings.HasPrefix(s, "css="):
		return CSS(strings.TrimPrefix(s, "css=")), nil
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "("):
		return XPath(s), nil
	default:
		return CSS(s), nil
	}
}

// Kind is a supported browser.
type Kind string

const (
	None   Kind = ""
	Chrome Kind = "Chrome"
	Edge   Kind = "Edge"
)

// ParseKind matches name case-insensitively. Unknown names yield None.
func ParseKind(name string) Kind {
	switch {
	case strings.EqualFold(name, string(Chrome)):
		return Chrome
	case strings.EqualFold(name, string(Edge)):
		return Edge
	default:
		return None
	}
}

var (
	// ErrUnsupportedBrowser is returned when the configured browser is neither Chrome nor Edge.
	ErrUnsupportedBrowser = errors.New("unsupported browser")
	// ErrMissingBinary is returned for Edge without a binary location.
	ErrMissingBinary = errors.New("browser binary location not configured")
	// ErrNotRunning is returned by operations on a driver that is not started.
	ErrNotRunning = errors.New("browser not running")
)

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Browser selects the Chromium flavour to launch.
	Browser Kind

	// Headless runs the browser without a visible window.
	Headless bool

	// Incognito opens a private browsing window.
	Incognito bool

	// PipelineRun disables the GPU and pins the window size for CI runners
	// without a display. Otherwise the window starts maximized.
	PipelineRun bool

	// WindowWidth and WindowHeight apply to pipeline runs.
	WindowWidth  int
	WindowHeight int

	// BinaryLocation is the browser executable. Required for Edge.
	BinaryLocation string

	// Verbose enables browser and driver logging, routed to Logger.
	Verbose bool

	// Logger receives driver and console logs.
	Logger *slog.Logger
}

// DefaultDriverConfig returns default browser configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Browser:      Chrome,
		Headless:     false,
		WindowWidth:  1920,
		WindowHeight: 960,
		Verbose:      true,
	}
}

// Factory builds a driver from configuration. The driver is not started.
type Factory func(cfg *DriverConfig) (Driver, error)

// NewDriver is the Factory for chromedp-backed drivers.
func NewDriver(cfg *DriverConfig) (Driver, error) {
	d, err := NewChromeDPDriver(cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}
