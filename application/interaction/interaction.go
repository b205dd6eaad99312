// Package interaction performs waited, classified element interactions
// against the browser driver of a test session.
//
// Every operation follows one template: log the operation, poll the
// driver until the element condition holds or the wait policy times out,
// perform the terminal action once, then classify any failure. Strict
// operations return every failure; state checks (IsDisplayed, IsSelected,
// IsEnabled) report timeouts, missing elements and non-interactable
// elements as false.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"webharness-go/core/failure"
	"webharness-go/core/randutil"
	"webharness-go/infrastructure/browser"
)

// ErrNoDriver is returned by every operation on a session without a browser.
var ErrNoDriver = errors.New("no browser driver in session")

// WaitPolicy bounds the polling of one interaction.
type WaitPolicy struct {
	Timeout  time.Duration
	Interval time.Duration
}

// DefaultWaitPolicy returns a 5s timeout polled every 250ms.
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Timeout:  5 * time.Second,
		Interval: 250 * time.Millisecond,
	}
}

func (p WaitPolicy) normalized() WaitPolicy {
	def := DefaultWaitPolicy()
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.Interval > p.Timeout {
		p.Interval = p.Timeout
	}
	return p
}

// Session is what an interaction needs from a test session.
type Session interface {
	// Driver returns the browser driver, or nil for non-UI sessions.
	Driver() browser.Driver
	Wait() WaitPolicy
	Logger() *slog.Logger
	Random() *randutil.Source
}

// FailureReporter is implemented by sessions that want to observe
// interaction failures, e.g. to publish them as events.
type FailureReporter interface {
	ReportInteractionFailure(op string, sel browser.Selector, err error)
}

type policy int

const (
	strict policy = iota
	lenient
)

// condition decides whether the located elements are ready for the action.
type condition func(ctx context.Context, els []browser.Element) (bool, error)

// action runs once on the elements accepted by the condition.
type action[T any] func(ctx context.Context, els []browser.Element) (T, error)

// located holds once FindElements returns at least one element.
func located(ctx context.Context, els []browser.Element) (bool, error) {
	return len(els) > 0, nil
}

// visible holds once the first located element is displayed.
func visible(ctx context.Context, els []browser.Element) (bool, error) {
	if len(els) == 0 {
		return false, nil
	}
	return els[0].IsDisplayed(ctx)
}

// first is the action target for single-element operations.
func first(els []browser.Element) browser.Element {
	return els[0]
}

// execute is the wait-then-act template shared by every operation.
func execute[T any](ctx context.Context, s Session, op string, sel browser.Selector, p policy, until condition, act action[T]) (T, error) {
	var zero T
	start := time.Now()
	logger := loggerOf(s)

	driver := s.Driver()
	if driver == nil {
		recordInteraction(op, resultNoDriver, start)
		return zero, fmt.Errorf("%s %s: %w", op, sel, ErrNoDriver)
	}

	logger.Debug("Interaction", "op", op, "selector", sel.String())

	els, err := poll(ctx, driver, s.Wait().normalized(), op, sel, until)
	if err != nil {
		return finish(ctx, s, op, sel, p, start, zero, err)
	}

	result, err := act(ctx, els)
	if err != nil {
		err = failure.New(failure.Classify(err), op, sel.String(), err)
	}
	return finish(ctx, s, op, sel, p, start, result, err)
}

// poll re-runs FindElements and until on every interval. Transient failures
// (missing, stale or not yet interactable elements) are retried; the last one
// becomes the cause of the Timeout error.
func poll(ctx context.Context, driver browser.Driver, wp WaitPolicy, op string, sel browser.Selector, until condition) ([]browser.Element, error) {
	var (
		els     []browser.Element
		lastErr error
	)

	err := wait.PollUntilContextTimeout(ctx, wp.Interval, wp.Timeout, true, func(ctx context.Context) (bool, error) {
		found, err := driver.FindElements(ctx, sel)
		if err == nil {
			var ok bool
			if ok, err = until(ctx, found); err == nil {
				if ok {
					els = found
				}
				return ok, nil
			}
		}
		if transient(err) {
			lastErr = err
			return false, nil
		}
		return false, err
	})
	if err == nil {
		return els, nil
	}

	// A cancelled caller is not a timeout.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !wait.Interrupted(err) {
		return nil, failure.New(failure.Classify(err), op, sel.String(), err)
	}

	cause := err
	if lastErr != nil {
		cause = lastErr
	}
	return nil, failure.New(failure.Timeout, op, sel.String(), fmt.Errorf("condition not met within %s: %w", wp.Timeout, cause))
}

func transient(err error) bool {
	switch failure.Classify(err) {
	case failure.NotFound, failure.StaleReference, failure.ElementNotInteractable, failure.ElementNotVisible:
		return true
	default:
		return false
	}
}

// finish applies the policy, logs, reports and records metrics.
func finish[T any](ctx context.Context, s Session, op string, sel browser.Selector, p policy, start time.Time, result T, err error) (T, error) {
	if err == nil {
		recordInteraction(op, resultOK, start)
		return result, nil
	}

	kind := failure.Classify(err)
	logger := loggerOf(s)
	if p == lenient && swallowed(kind) {
		var zero T
		logger.Debug("State check degraded to false", "op", op, "selector", sel.String(), "kind", kind.String())
		recordInteraction(op, resultFalse, start)
		return zero, nil
	}

	logger.Error("Interaction failed", "op", op, "selector", sel.String(), "kind", kind.String(), "error", err)
	recordInteraction(op, kindResult(kind), start)
	if r, ok := s.(FailureReporter); ok {
		r.ReportInteractionFailure(op, sel, err)
	}
	return result, err
}

// swallowed lists the kinds a state check reports as false.
func swallowed(kind failure.Kind) bool {
	switch kind {
	case failure.Timeout, failure.ElementNotInteractable, failure.NotFound:
		return true
	default:
		return false
	}
}

func loggerOf(s Session) *slog.Logger {
	if l := s.Logger(); l != nil {
		return l
	}
	return slog.Default()
}

func randomOf(s Session) *randutil.Source {
	if r := s.Random(); r != nil {
		return r
	}
	return randutil.Default()
}
