package browser

import (
	"fmt"
	"sort"

	"github.com/chromedp/chromedp"
)

// LaunchPlan is the resolved command line for one browser process.
type LaunchPlan struct {
	Browser Kind
	// Flags maps a command line switch to true, false or a string value.
	// They are applied on top of chromedp.DefaultExecAllocatorOptions.
	Flags    map[string]any
	ExecPath string
}

// PlanLaunch maps a DriverConfig onto browser flags. It has no side effects.
func PlanLaunch(cfg *DriverConfig) (*LaunchPlan, error) {
	if cfg == nil {
		cfg = DefaultDriverConfig()
	}

	plan := &LaunchPlan{
		Browser: cfg.Browser,
		Flags:   map[string]any{"headless": cfg.Headless},
	}

	switch cfg.Browser {
	case Chrome:
		plan.ExecPath = cfg.BinaryLocation
	case Edge:
		if cfg.BinaryLocation == "" {
			return nil, fmt.Errorf("edge: %w", ErrMissingBinary)
		}
		plan.ExecPath = cfg.BinaryLocation
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBrowser, string(cfg.Browser))
	}

	if cfg.Incognito {
		plan.Flags["incognito"] = true
	}

	if cfg.PipelineRun {
		w, h := cfg.WindowWidth, cfg.WindowHeight
		if w <= 0 || h <= 0 {
			w, h = 1920, 960
		}
		plan.Flags["disable-gpu"] = true
		plan.Flags["window-size"] = fmt.Sprintf("%d,%d", w, h)
	} else {
		plan.Flags["start-maximized"] = true
	}

	if cfg.Verbose {
		plan.Flags["enable-logging"] = true
		plan.Flags["v"] = "1"
	}

	return plan, nil
}

// AllocatorOptions converts the plan into chromedp allocator options.
func (p *LaunchPlan) AllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	names := make([]string, 0, len(p.Flags))
	for name := range p.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, p.Flags[name]))
	}

	if p.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.ExecPath))
	}
	return opts
}

// Args renders the plan's flags as command line switches, for logging.
func (p *LaunchPlan) Args() []string {
	names := make([]string, 0, len(p.Flags))
	for name := range p.Flags {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]string, 0, len(names))
	for _, name := range names {
		switch v := p.Flags[name].(type) {
		case bool:
			if v {
				args = append(args, "--"+name)
			}
		default:
			args = append(args, fmt.Sprintf("--%s=%v", name, v))
		}
	}
	return args
}
