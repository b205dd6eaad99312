package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"webharness-go/core/failure"
)

// Element scripts run with `this` bound to the resolved node. They always
// return a JSON value so results decode without undefined handling.
const (
	jsText = `function() {
	const t = this.innerText;
	return typeof t === "string" ? t : (this.textContent || "");
}`
	jsAttribute = `function(name) {
	const p = this[name];
	if (p !== undefined && p !== null && typeof p !== "object" && typeof p !== "function") {
		return {present: true, value: String(p)};
	}
	const a = this.getAttribute(name);
	return a === null ? {present: false, value: ""} : {present: true, value: a};
}`
	jsCSSValue = `function(name) {
	return window.getComputedStyle(this).getPropertyValue(name);
}`
	jsDisplayed = `function() {
	if (!this.isConnected) return false;
	for (let el = this; el; el = el.parentElement) {
		const s = window.getComputedStyle(el);
		if (s.display === "none") return false;
		if (el === this && (s.visibility === "hidden" || s.visibility === "collapse")) return false;
		if (parseFloat(s.opacity) === 0) return false;
	}
	const r = this.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
}`
	jsSelected = `function() {
	return !!(this.selected || this.checked);
}`
	jsEnabled = `function() {
	if (this.disabled) return false;
	const fs = this.closest("fieldset[disabled]");
	return fs === null;
}`
	jsClear = `function() {
	if ("value" in this) {
		this.value = "";
	} else if (this.isContentEditable) {
		this.textContent = "";
	} else {
		return false;
	}
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`
	jsOptions = `function() {
	return Array.from(this.options || []).map((o, i) => ({
		index: i, text: o.text, value: o.value, selected: o.selected
	}));
}`
	jsSelectIndex = `function(i) {
	if (!this.options || i < 0 || i >= this.options.length) return false;
	this.selectedIndex = i;
	this.options[i].selected = true;
	this.dispatchEvent(new Event("input", {bubbles: true}));
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`
)

// chromeElement is a located DOM node.
type chromeElement struct {
	driver *ChromeDPDriver
	node   *cdp.Node
}

var _ Element = (*chromeElement)(nil)

// call invokes fn on the node and decodes the JSON result into res.
func (e *chromeElement) call(ctx context.Context, op, fn string, res any, args ...any) error {
	err := e.driver.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		defer func() {
			// Fails harmlessly once the page navigated away.
			_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
		}()
		return chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
	}))
	return classifyCDP(op, err)
}

func (e *chromeElement) Click(ctx context.Context) error {
	return classifyCDP("click", e.driver.run(ctx, chromedp.MouseClickNode(e.node)))
}

func (e *chromeElement) SendKeys(ctx context.Context, text string) error {
	return classifyCDP("sendKeys", e.driver.run(ctx, chromedp.KeyEventNode(e.node, text)))
}

func (e *chromeElement) Clear(ctx context.Context) error {
	var ok bool
	if err := e.call(ctx, "clear", jsClear, &ok); err != nil {
		return err
	}
	if !ok {
		return failure.New(failure.ElementNotInteractable, "clear", "", fmt.Errorf("<%s> has no editable value", e.node.LocalName))
	}
	return nil
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, "text", jsText, &text)
	return text, err
}

type attributeResult struct {
	Present bool   `json:"present"`
	Value   string `json:"value"`
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res attributeResult
	if err := e.call(ctx, "attribute", jsAttribute, &res, name); err != nil {
		return "", false, err
	}
	return res.Value, res.Present, nil
}

func (e *chromeElement) CSSValue(ctx context.Context, property string) (string, error) {
	var v string
	err := e.call(ctx, "cssValue", jsCSSValue, &v, property)
	return v, err
}

func (e *chromeElement) IsDisplayed(ctx context.Context) (bool, error) {
	var v bool
	err := e.call(ctx, "isDisplayed", jsDisplayed, &v)
	return v, err
}

func (e *chromeElement) IsSelected(ctx context.Context) (bool, error) {
	var v bool
	err := e.call(ctx, "isSelected", jsSelected, &v)
	return v, err
}

func (e *chromeElement) IsEnabled(ctx context.Context) (bool, error) {
	var v bool
	err := e.call(ctx, "isEnabled", jsEnabled, &v)
	return v, err
}

func (e *chromeElement) TagName(ctx context.Context) (string, error) {
	return strings.ToLower(e.node.NodeName), nil
}

func (e *chromeElement) Options(ctx context.Context) ([]Option, error) {
	var opts []Option
	err := e.call(ctx, "options", jsOptions, &opts)
	return opts, err
}

func (e *chromeElement) SelectIndex(ctx context.Context, i int) error {
	var ok bool
	if err := e.call(ctx, "selectIndex", jsSelectIndex, &ok, i); err != nil {
		return err
	}
	if !ok {
		return failure.New(failure.NotFound, "selectIndex", "", fmt.Errorf("no option at index %d", i))
	}
	return nil
}

// classifyCDP maps DevTools protocol errors onto the failure taxonomy.
// Context errors pass through so the wait loop can classify them.
func classifyCDP(op string, err error) error {
	if err == nil {
		return nil
	}
	if err == context.DeadlineExceeded || err == context.Canceled || err == ErrNotRunning {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no node with given id"),
		strings.Contains(msg, "could not find node with given id"),
		strings.Contains(msg, "does not belong to the document"),
		strings.Contains(msg, "node is detached"),
		strings.Contains(msg, "cannot find context with specified id"):
		return failure.New(failure.StaleReference, op, "", err)
	case strings.Contains(msg, "box model"),
		strings.Contains(msg, "content quads"),
		strings.Contains(msg, "not visible"),
		strings.Contains(msg, "not focusable"):
		return failure.New(failure.ElementNotInteractable, op, "", err)
	default:
		return err
	}
}
