// Package browsertest provides an in-memory browser.Driver for testing
// interactions without launching a browser.
package browsertest

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"webharness-go/core/failure"
	"webharness-go/infrastructure/browser"
)

// Node is a fake DOM element. Its zero state is a visible, enabled element;
// use the With* helpers to shape it before handing it to a Driver.
type Node struct {
	mu        sync.Mutex
	tag       string
	text      string
	attrs     map[string]string
	css       map[string]string
	hidden    bool
	disabled  bool
	selected  bool
	options   []browser.Option
	errs      map[string]error
	stale     bool
	clicks    int
	keys      []string
	submitted int
}

// NewNode creates a visible, enabled element with the given tag name.
func NewNode(tag string) *Node {
	return &Node{
		tag:   tag,
		attrs: make(map[string]string),
		css:   make(map[string]string),
		errs:  make(map[string]error),
	}
}

// Select creates a select element with one option per text.
func Select(texts ...string) *Node {
	n := NewNode("select")
	for i, t := range texts {
		n.options = append(n.options, browser.Option{Index: i, Text: t, Value: t, Selected: i == 0})
	}
	if len(texts) > 0 {
		n.attrs["value"] = texts[0]
	}
	return n
}

func (n *Node) WithText(text string) *Node {
	n.text = text
	return n
}

func (n *Node) WithAttr(name, value string) *Node {
	n.attrs[name] = value
	return n
}

func (n *Node) WithCSS(property, value string) *Node {
	n.css[property] = value
	return n
}

func (n *Node) Hidden() *Node {
	n.hidden = true
	return n
}

func (n *Node) Disabled() *Node {
	n.disabled = true
	return n
}

func (n *Node) Checked() *Node {
	n.selected = true
	return n
}

// FailOn makes every call of op return err. Op names match the
// browser.Element method names ("Click", "Text", ...).
func (n *Node) FailOn(op string, err error) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs[op] = err
	return n
}

// Detach marks the node as removed from the DOM; handles to it go stale.
func (n *Node) Detach() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stale = true
}

// Clicks returns how many clicks the node received.
func (n *Node) Clicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clicks
}

// Keys returns every SendKeys payload in order.
func (n *Node) Keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.keys...)
}

// Submitted returns how many times Enter was sent.
func (n *Node) Submitted() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.submitted
}

// SelectedIndex returns the index of the selected option, or -1.
func (n *Node) SelectedIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, o := range n.options {
		if o.Selected {
			return o.Index
		}
	}
	return -1
}

// Value returns the current value attribute.
func (n *Node) Value() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attrs["value"]
}

// check must be called with n.mu held.
func (n *Node) check(op string) error {
	if n.stale {
		return failure.New(failure.StaleReference, op, "", nil)
	}
	if err := n.errs[op]; err != nil {
		return err
	}
	return nil
}

type entry struct {
	node     *Node
	appearAt time.Time
}

// Driver is an in-memory browser.Driver.
type Driver struct {
	mu          sync.Mutex
	running     bool
	starts      int
	quits       int
	elements    map[browser.Selector][]entry
	finds       map[browser.Selector]int
	navigations []string
	screenshots int
	configs     []*browser.DriverConfig

	// StartErr is returned by Start when set.
	StartErr error
	// ScreenshotErr is returned by CaptureScreenshot when set.
	ScreenshotErr error
	// FindErr is returned by FindElements when set.
	FindErr error
}

var _ browser.Driver = (*Driver)(nil)

// New creates an empty fake driver.
func New() *Driver {
	return &Driver{
		elements: make(map[browser.Selector][]entry),
		finds:    make(map[browser.Selector]int),
	}
}

// Add makes nodes match sel immediately.
func (d *Driver) Add(sel browser.Selector, nodes ...*Node) *Driver {
	return d.AddAfter(sel, 0, nodes...)
}

// AddAfter makes nodes match sel once delay has elapsed.
func (d *Driver) AddAfter(sel browser.Selector, delay time.Duration, nodes ...*Node) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	at := time.Now().Add(delay)
	for _, n := range nodes {
		d.elements[sel] = append(d.elements[sel], entry{node: n, appearAt: at})
	}
	return d
}

// Remove detaches every node matching sel.
func (d *Driver) Remove(sel browser.Selector) {
	d.mu.Lock()
	entries := d.elements[sel]
	delete(d.elements, sel)
	d.mu.Unlock()

	for _, e := range entries {
		e.node.Detach()
	}
}

// Factory returns a browser.Factory that always hands out d and records
// the configuration it was asked for.
func (d *Driver) Factory() browser.Factory {
	return func(cfg *browser.DriverConfig) (browser.Driver, error) {
		if _, err := browser.PlanLaunch(cfg); err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.configs = append(d.configs, cfg)
		d.mu.Unlock()
		return d, nil
	}
}

// Configs returns the configurations passed to Factory.
func (d *Driver) Configs() []*browser.DriverConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*browser.DriverConfig(nil), d.configs...)
}

func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.StartErr != nil {
		return d.StartErr
	}
	d.starts++
	d.running = true
	return nil
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quits++
	d.running = false
	return nil
}

func (d *Driver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return browser.ErrNotRunning
	}
	d.navigations = append(d.navigations, url)
	return nil
}

func (d *Driver) FindElements(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil, browser.ErrNotRunning
	}
	d.finds[sel]++
	if d.FindErr != nil {
		return nil, d.FindErr
	}

	now := time.Now()
	var out []browser.Element
	for _, e := range d.elements[sel] {
		if now.Before(e.appearAt) {
			continue
		}
		out = append(out, &element{node: e.node})
	}
	return out, nil
}

func (d *Driver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil, browser.ErrNotRunning
	}
	if d.ScreenshotErr != nil {
		return nil, d.ScreenshotErr
	}
	d.screenshots++

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Starts returns how many times Start succeeded.
func (d *Driver) Starts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

// Quits returns how many times Quit was called.
func (d *Driver) Quits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

// Screenshots returns how many screenshots were captured.
func (d *Driver) Screenshots() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screenshots
}

// Navigations returns every URL navigated to.
func (d *Driver) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigations...)
}

// FindCalls returns how many times sel was looked up.
func (d *Driver) FindCalls(sel browser.Selector) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.finds[sel]
}
