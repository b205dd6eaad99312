package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeDPDriver implements Driver using chromedp. It drives Chrome, or
// Edge through the same DevTools protocol.
type ChromeDPDriver struct {
	config      *DriverConfig
	plan        *LaunchPlan
	logger      *slog.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool
}

var _ Driver = (*ChromeDPDriver)(nil)

// NewChromeDPDriver validates cfg and prepares a driver. No browser is
// launched until Start.
func NewChromeDPDriver(cfg *DriverConfig) (*ChromeDPDriver, error) {
	if cfg == nil {
		cfg = DefaultDriverConfig()
	}
	plan, err := PlanLaunch(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromeDPDriver{
		config: cfg,
		plan:   plan,
		logger: logger.With("browser", string(cfg.Browser)),
	}, nil
}

// Plan returns the launch plan the driver was built with.
func (d *ChromeDPDriver) Plan() *LaunchPlan {
	return d.plan
}

// contextOptions routes chromedp's own logging to slog when verbose.
func (d *ChromeDPDriver) contextOptions() []chromedp.ContextOption {
	if !d.config.Verbose {
		return nil
	}
	return []chromedp.ContextOption{
		chromedp.WithLogf(func(format string, args ...any) {
			d.logger.Debug(fmt.Sprintf(format, args...), "source", "driver")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			d.logger.Error(fmt.Sprintf(format, args...), "source", "driver")
		}),
	}
}

// Start launches the browser process and opens the first tab.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.logger.Debug("Launching browser", "args", d.plan.Args(), "exec_path", d.plan.ExecPath)

	// The browser outlives the caller's context; Quit ends it.
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(context.Background(), d.plan.AllocatorOptions()...)
	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx, d.contextOptions()...)

	if d.config.Verbose {
		chromedp.ListenTarget(d.ctx, d.logConsole)
	}

	// An empty Run forces the process to start so launch errors surface here.
	// It must run on the tab context itself: the context of the first Run
	// owns the browser process.
	if err := chromedp.Run(d.ctx); err != nil {
		d.cleanup()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	d.running = true
	return nil
}

func (d *ChromeDPDriver) logConsole(ev any) {
	e, ok := ev.(*runtime.EventConsoleAPICalled)
	if !ok {
		return
	}
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		if len(arg.Value) > 0 {
			parts = append(parts, string(arg.Value))
		} else if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	d.logger.Debug("Browser console", "level", string(e.Type), "message", strings.Join(parts, " "))
}

// Quit closes the browser and releases resources.
func (d *ChromeDPDriver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// bindLocked derives a browser-scoped context that is also cancelled when
// ctx is done. d.mu must be held.
func (d *ChromeDPDriver) bindLocked(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(d.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// run executes actions in the browser tab under the caller's deadline.
func (d *ChromeDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	running := d.running
	browserCtx := d.ctx
	if !running || browserCtx == nil {
		d.mu.Unlock()
		return ErrNotRunning
	}
	runCtx, stop := d.bindLocked(ctx)
	d.mu.Unlock()
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Report the caller's deadline rather than the derived cancellation.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Navigate navigates to the specified URL.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// FindElements returns the nodes matching sel right now.
func (d *ChromeDPDriver) FindElements(ctx context.Context, sel Selector) ([]Element, error) {
	by := chromedp.BySearch
	if sel.By == ByCSS {
		by = chromedp.ByQueryAll
	}

	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(sel.Value, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}

	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.NodeType != cdp.NodeTypeElement {
			continue
		}
		elements = append(elements, &chromeElement{driver: d, node: n})
	}
	return elements, nil
}

// CaptureScreenshot captures the viewport as PNG.
func (d *ChromeDPDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}
