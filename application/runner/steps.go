package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"webharness-go/application/interaction"
	"webharness-go/application/pages"
	"webharness-go/application/session"
	"webharness-go/domain/flow"
	"webharness-go/domain/page"
	"webharness-go/infrastructure/browser"
)

// stepResult is the verdict of one step. Non-assertion steps always pass.
type stepResult struct {
	passed  bool
	message string
}

var stepOK = stepResult{passed: true}

// executor runs the steps of one flow against one session.
type executor struct {
	sess    *session.Session
	catalog *page.Registry
	appURL  string
	vars    map[string]string
}

func (e *executor) expand(s string) string {
	return flow.Expand(s, e.vars)
}

func (e *executor) target(step *flow.Step) (browser.Selector, error) {
	return pages.Resolve(e.catalog, e.expand(step.Target))
}

func (e *executor) execute(ctx context.Context, step *flow.Step) (stepResult, error) {
	switch step.Action {
	case flow.ActionTypeNavigate:
		return stepOK, e.sess.Navigate(ctx, e.resolveURL(step.URL))
	case flow.ActionTypeWait:
		return stepOK, sleep(ctx, step.Duration)
	}

	sel, err := e.target(step)
	if err != nil {
		return stepResult{}, err
	}

	switch step.Action {
	case flow.ActionTypeClick:
		return stepOK, interaction.Click(ctx, e.sess, sel, step.ClickCount())
	case flow.ActionTypeType:
		return stepOK, e.typeText(ctx, step, sel)
	case flow.ActionTypeClear:
		return stepOK, interaction.Clear(ctx, e.sess, sel)
	case flow.ActionTypeSelect:
		return stepOK, e.selectOption(ctx, step, sel)
	case flow.ActionTypeWaitVisible:
		_, err := interaction.WaitUntilVisible(ctx, e.sess, sel)
		return stepOK, err
	case flow.ActionTypeAssertDisplayed:
		return e.assertDisplayed(ctx, step, sel)
	case flow.ActionTypeAssertText:
		text, err := interaction.ReadText(ctx, e.sess, sel)
		if err != nil {
			return stepResult{}, err
		}
		return e.compare(step, "text", text, flow.Env{Text: text})
	case flow.ActionTypeAssertAttribute:
		value, _, err := interaction.ReadAttribute(ctx, e.sess, sel, step.AttributeName())
		if err != nil {
			return stepResult{}, err
		}
		return e.compare(step, step.AttributeName(), value, flow.Env{Value: value})
	case flow.ActionTypeAssertCount:
		count := interaction.CountElementsImmediate
		if step.Wait {
			count = interaction.CountVisibleElements
		}
		n, err := count(ctx, e.sess, sel)
		if err != nil {
			return stepResult{}, err
		}
		return e.compare(step, "count", strconv.Itoa(n), flow.Env{Count: n})
	case flow.ActionTypeAssertCSS:
		value, err := interaction.ReadCSSProperty(ctx, e.sess, sel, step.Property)
		if err != nil {
			return stepResult{}, err
		}
		return e.compare(step, step.Property, value, flow.Env{Value: value})
	case flow.ActionTypeAssertEnabled:
		enabled, err := interaction.IsEnabled(ctx, e.sess, sel)
		if err != nil {
			return stepResult{}, err
		}
		return e.check(step, "enabled", enabled, flow.Env{Enabled: enabled})
	case flow.ActionTypeAssertSelected:
		selected, err := interaction.IsSelected(ctx, e.sess, sel)
		if err != nil {
			return stepResult{}, err
		}
		return e.check(step, "selected", selected, flow.Env{Selected: selected})
	default:
		return stepResult{}, fmt.Errorf("unknown action %q", step.Action)
	}
}

// resolveURL maps a navigate URL onto the application URL. Empty means the
// application URL itself; a leading "/" is a path under it.
func (e *executor) resolveURL(raw string) string {
	u := e.expand(raw)
	switch {
	case u == "":
		return e.appURL
	case strings.HasPrefix(u, "/"):
		return strings.TrimRight(e.appURL, "/") + u
	default:
		return u
	}
}

func (e *executor) typeText(ctx context.Context, step *flow.Step, sel browser.Selector) error {
	text := e.expand(step.Text)
	if text != "" {
		if err := interaction.SendKeys(ctx, e.sess, sel, text); err != nil {
			return err
		}
	}
	if step.Submit {
		if err := interaction.SendKeys(ctx, e.sess, sel, browser.KeyEnter); err != nil {
			return err
		}
	}
	if step.SaveAs != "" {
		e.vars[step.SaveAs] = text
	}
	return nil
}

func (e *executor) selectOption(ctx context.Context, step *flow.Step, sel browser.Selector) error {
	opt := step.Option
	var (
		selected string
		err      error
	)
	switch {
	case opt.Index != nil:
		if err = interaction.SelectByIndex(ctx, e.sess, sel, *opt.Index); err == nil && step.SaveAs != "" {
			selected, err = interaction.ReadSelectedOptionText(ctx, e.sess, sel)
		}
	case opt.Random:
		selected, err = interaction.SelectRandomOption(ctx, e.sess, sel)
	case opt.OtherThan != "":
		selected, err = interaction.SelectOptionOtherThan(ctx, e.sess, sel, e.expand(opt.OtherThan))
	default:
		selected = e.expand(opt.Text)
		err = interaction.SelectByVisibleText(ctx, e.sess, sel, selected, opt.Partial)
		if err == nil && opt.Partial && step.SaveAs != "" {
			selected, err = interaction.ReadSelectedOptionText(ctx, e.sess, sel)
		}
	}
	if err != nil {
		return err
	}

	e.sess.Logger().Debug("Option selected", "mode", opt.Mode(), "text", selected)
	if step.SaveAs != "" {
		e.vars[step.SaveAs] = selected
	}
	return nil
}

func (e *executor) assertDisplayed(ctx context.Context, step *flow.Step, sel browser.Selector) (stepResult, error) {
	displayed, err := interaction.IsDisplayed(ctx, e.sess, sel)
	if err != nil {
		return stepResult{}, err
	}
	return e.check(step, "displayed", displayed, flow.Env{Displayed: displayed})
}

// check passes a boolean state assertion when the state holds, or, with
// expect set, when the expression does.
func (e *executor) check(step *flow.Step, what string, holds bool, env flow.Env) (stepResult, error) {
	if step.Expect != "" {
		return e.evaluate(step, env)
	}
	if !holds {
		return stepResult{message: fmt.Sprintf("%s is not %s", step.Target, what)}, nil
	}
	return stepResult{passed: true, message: fmt.Sprintf("%s is %s", step.Target, what)}, nil
}

// compare checks observed against equals, contains and expect. Every
// check that is set must hold.
func (e *executor) compare(step *flow.Step, what, observed string, env flow.Env) (stepResult, error) {
	if step.Equals != "" {
		if want := e.expand(step.Equals); observed != want {
			return stepResult{message: fmt.Sprintf("%s of %s = %q, want %q", what, step.Target, observed, want)}, nil
		}
	}
	if step.Contains != "" {
		if want := e.expand(step.Contains); !strings.Contains(observed, want) {
			return stepResult{message: fmt.Sprintf("%s of %s = %q, want it to contain %q", what, step.Target, observed, want)}, nil
		}
	}
	if step.Expect != "" {
		return e.evaluate(step, env)
	}
	return stepResult{passed: true, message: fmt.Sprintf("%s of %s = %q", what, step.Target, observed)}, nil
}

func (e *executor) evaluate(step *flow.Step, env flow.Env) (stepResult, error) {
	env.Vars = e.vars
	passed, err := step.Evaluate(env)
	if err != nil {
		return stepResult{}, err
	}
	if !passed {
		return stepResult{message: fmt.Sprintf("expect %q is false for %s", step.Expect, step.Target)}, nil
	}
	return stepResult{passed: true, message: fmt.Sprintf("expect %q holds for %s", step.Expect, step.Target)}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
