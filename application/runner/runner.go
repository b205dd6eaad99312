// Package runner executes flows inside full test session lifecycles.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"webharness-go/application/session"
	"webharness-go/core/event"
	"webharness-go/core/eventbus"
	"webharness-go/domain/flow"
	"webharness-go/domain/page"
	"webharness-go/domain/run"
	"webharness-go/infrastructure/browser"
	"webharness-go/infrastructure/config"
)

// CodenameVar is set to a random codename for every flow that does not
// define it.
const CodenameVar = "codename"

// Config holds the dependencies of a FlowRunner.
type Config struct {
	Params   *config.Parameters
	Catalog  *page.Registry
	Factory  browser.Factory
	EventBus eventbus.EventBus

	// Headless overrides the Headless parameter when set.
	Headless *bool

	Logger *slog.Logger
}

// FlowRunner runs one flow per session.
type FlowRunner struct {
	params   *config.Parameters
	catalog  *page.Registry
	factory  browser.Factory
	eventBus eventbus.EventBus
	headless *bool
	logger   *slog.Logger
}

// NewFlowRunner creates a runner. A nil Params uses the defaults.
func NewFlowRunner(cfg *Config) *FlowRunner {
	if cfg == nil {
		cfg = &Config{}
	}
	params := cfg.Params
	if params == nil {
		params = config.DefaultParameters()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FlowRunner{
		params:   params,
		catalog:  cfg.Catalog,
		factory:  cfg.Factory,
		eventBus: cfg.EventBus,
		headless: cfg.Headless,
		logger:   logger,
	}
}

// flowContext is the TestContext of one flow run.
type flowContext struct {
	name string

	mu          sync.Mutex
	assertions  []run.Assertion
	attachments []string
}

func (c *flowContext) Name() string { return c.name }

func (c *flowContext) Assertions() []run.Assertion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]run.Assertion(nil), c.assertions...)
}

func (c *flowContext) AddAttachment(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachments = append(c.attachments, path)
}

func (c *flowContext) record(status run.AssertionStatus, msg, where string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assertions = append(c.assertions, run.Assertion{Status: status, Message: msg, StackTrace: where})
}

// Run executes f from setup to teardown and returns its record. Failed
// assertions and step errors end the flow and are reported through the
// record's outcome; the error is non-nil only when the session could not
// be set up.
func (r *FlowRunner) Run(ctx context.Context, f *flow.Flow) (*run.Record, error) {
	rec := run.NewRecord(f.Name)
	tc := &flowContext{name: f.Name}

	sess, err := session.Setup(ctx, tc, r.params, session.Options{
		UITest:          f.UI,
		Headless:        r.headless,
		NavigateOnSetup: f.UI && f.Navigate,
		Factory:         r.factory,
		EventBus:        r.eventBus,
		Logger:          r.logger,
	})
	if err != nil {
		rec.Outcome = run.Failure
		rec.Error = err.Error()
		rec.Finished = time.Now()
		recordFlow(rec)
		return rec, fmt.Errorf("failed to set up flow %s: %w", f.Name, err)
	}

	rec.LoggerID = sess.LoggerID()
	r.publish(event.NewFlowStarted(sess.LoggerID(), f.Name))
	r.logger.Info("Flow started", "flow", f.Name, "logger_id", sess.LoggerID(), "steps", len(f.Steps))

	outcome, stepErr := r.runSteps(ctx, sess, tc, f)

	// Teardown still runs when ctx is cancelled, so diagnostics are kept.
	tdErr := sess.Teardown(context.WithoutCancel(ctx), outcome)
	if tdErr != nil {
		r.logger.Warn("Teardown reported errors", "flow", f.Name, "error", tdErr)
	}

	rec.Outcome = outcome
	rec.Finished = time.Now()
	rec.Assertions = tc.Assertions()
	rec.Attachments = sess.Attachments()
	if joined := errors.Join(stepErr, tdErr); joined != nil {
		rec.Error = joined.Error()
	}

	recordFlow(rec)
	r.publish(event.NewFlowFinished(rec.LoggerID, f.Name, outcome.String(), rec.Duration(), stepErr))
	r.logger.Info("Flow finished",
		"flow", f.Name,
		"outcome", outcome.String(),
		"duration", rec.Duration().Round(time.Millisecond),
		"assertions", len(rec.Assertions),
	)
	return rec, nil
}

// runSteps executes the steps in order and stops at the first failure.
func (r *FlowRunner) runSteps(ctx context.Context, sess *session.Session, tc *flowContext, f *flow.Flow) (outcome run.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			sess.Logger().Error("Flow panicked", "panic", p)
			err = fmt.Errorf("panic: %v", p)
			tc.record(run.Failed, err.Error(), f.Name)
			outcome = run.Failure
		}
	}()

	vars := make(map[string]string, len(f.Vars)+1)
	for k, v := range f.Vars {
		vars[k] = v
	}
	if _, ok := vars[CodenameVar]; !ok {
		vars[CodenameVar] = sess.Random().Codename()
	}

	ex := &executor{sess: sess, catalog: r.catalog, appURL: r.params.ApplicationURL, vars: vars}

	for i := range f.Steps {
		step := &f.Steps[i]
		where := fmt.Sprintf("%s: step %d (%s %s)", f.Name, i+1, step.Action, step.Target)

		if ctx.Err() != nil {
			sess.Logger().Warn("Flow cancelled", "step", i+1)
			return run.Inconclusive, ctx.Err()
		}

		sess.Logger().Debug("Executing step", "index", i+1, "action", step.Action, "target", step.Target)
		res, err := ex.execute(ctx, step)
		passed := err == nil && res.passed
		r.publish(event.NewStepExecuted(sess.LoggerID(), i, string(step.Action), passed))

		switch {
		case err != nil && ctx.Err() != nil:
			return run.Inconclusive, err
		case err != nil:
			tc.record(run.Failed, err.Error(), where)
			sess.Logger().Error("Step failed", "index", i+1, "error", err)
			return run.Failure, err
		case !passed:
			tc.record(run.Failed, res.message, where)
			sess.Logger().Error("Assertion failed", "index", i+1, "message", res.message)
			return run.Failure, nil
		case step.Action.IsAssertion():
			tc.record(run.Passed, res.message, where)
		}
	}
	return run.Success, nil
}

func (r *FlowRunner) publish(e event.Event) {
	if r.eventBus != nil {
		r.eventBus.Publish(e)
	}
}
