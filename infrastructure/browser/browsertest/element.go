package browsertest

import (
	"context"
	"fmt"
	"strings"

	"webharness-go/core/failure"
	"webharness-go/infrastructure/browser"
)

type element struct {
	node *Node
}

var _ browser.Element = (*element)(nil)

func (e *element) Click(ctx context.Context) error {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("Click"); err != nil {
		return err
	}
	if n.hidden {
		return failure.New(failure.ElementNotInteractable, "Click", "", fmt.Errorf("<%s> is hidden", n.tag))
	}
	n.clicks++
	if n.tag == "input" && (n.attrs["type"] == "checkbox" || n.attrs["type"] == "radio") {
		n.selected = !n.selected
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("SendKeys"); err != nil {
		return err
	}
	if n.hidden || n.disabled {
		return failure.New(failure.ElementNotInteractable, "SendKeys", "", fmt.Errorf("<%s> cannot receive keys", n.tag))
	}
	n.keys = append(n.keys, text)
	if text == browser.KeyEnter {
		n.submitted++
		return nil
	}
	n.attrs["value"] += text
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("Clear"); err != nil {
		return err
	}
	if n.hidden || n.disabled {
		return failure.New(failure.ElementNotInteractable, "Clear", "", fmt.Errorf("<%s> cannot be cleared", n.tag))
	}
	n.attrs["value"] = ""
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("Text"); err != nil {
		return "", err
	}
	if n.hidden {
		return "", nil
	}
	return n.text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("Attribute"); err != nil {
		return "", false, err
	}
	v, ok := n.attrs[name]
	return v, ok, nil
}

func (e *element) CSSValue(ctx context.Context, property string) (string, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("CSSValue"); err != nil {
		return "", err
	}
	return n.css[property], nil
}

func (e *element) IsDisplayed(ctx context.Context) (bool, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("IsDisplayed"); err != nil {
		return false, err
	}
	return !n.hidden, nil
}

func (e *element) IsSelected(ctx context.Context) (bool, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("IsSelected"); err != nil {
		return false, err
	}
	return n.selected, nil
}

func (e *element) IsEnabled(ctx context.Context) (bool, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("IsEnabled"); err != nil {
		return false, err
	}
	return !n.disabled, nil
}

func (e *element) TagName(ctx context.Context) (string, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("TagName"); err != nil {
		return "", err
	}
	return strings.ToLower(n.tag), nil
}

func (e *element) Options(ctx context.Context) ([]browser.Option, error) {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("Options"); err != nil {
		return nil, err
	}
	return append([]browser.Option(nil), n.options...), nil
}

func (e *element) SelectIndex(ctx context.Context, i int) error {
	n := e.node
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.check("SelectIndex"); err != nil {
		return err
	}
	if i < 0 || i >= len(n.options) {
		return failure.New(failure.NotFound, "SelectIndex", "", fmt.Errorf("no option at index %d", i))
	}
	for j := range n.options {
		n.options[j].Selected = j == i
	}
	n.attrs["value"] = n.options[i].Value
	return nil
}
