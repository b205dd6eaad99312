package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"webharness-go/domain/run"
)

// Recorder adapts a testing.TB into a TestContext. It records every
// failure reported through it as a failed assertion, so it can be passed
// to testify's assert and require in place of t.
type Recorder struct {
	tb testing.TB

	mu          sync.Mutex
	assertions  []run.Assertion
	attachments []string
}

var _ TestContext = (*Recorder)(nil)
var _ assert.TestingT = (*Recorder)(nil)

// T wraps tb.
func T(tb testing.TB) *Recorder {
	return &Recorder{tb: tb}
}

// Errorf records a failed assertion and fails the underlying test.
func (r *Recorder) Errorf(format string, args ...any) {
	r.tb.Helper()
	msg := fmt.Sprintf(format, args...)
	r.record(run.Failed, msg, strings.Join(assert.CallerInfo(), "\n"))
	r.tb.Errorf("%s", msg)
}

// FailNow records a failed assertion and stops the test. It lets require
// use the recorder.
func (r *Recorder) FailNow() {
	r.tb.Helper()
	r.record(run.Failed, "test stopped", strings.Join(assert.CallerInfo(), "\n"))
	r.tb.FailNow()
}

// Pass records a passed assertion.
func (r *Recorder) Pass(message string) {
	r.record(run.Passed, message, "")
}

// Helper marks the caller as a helper of the underlying test.
func (r *Recorder) Helper() {
	r.tb.Helper()
}

func (r *Recorder) record(status run.AssertionStatus, msg, stack string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assertions = append(r.assertions, run.Assertion{Status: status, Message: msg, StackTrace: stack})
}

// Name returns the test name.
func (r *Recorder) Name() string {
	return r.tb.Name()
}

// Assertions returns the assertions recorded so far.
func (r *Recorder) Assertions() []run.Assertion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]run.Assertion(nil), r.assertions...)
}

// AddAttachment records path and logs it on the test.
func (r *Recorder) AddAttachment(path string) {
	r.mu.Lock()
	r.attachments = append(r.attachments, path)
	r.mu.Unlock()
	r.tb.Logf("attachment: %s", path)
}

// Attachments returns the attached file paths.
func (r *Recorder) Attachments() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.attachments...)
}

// Outcome maps the test's current status onto a run outcome.
func (r *Recorder) Outcome() run.Outcome {
	switch {
	case r.tb.Failed():
		return run.Failure
	case r.tb.Skipped():
		return run.Inconclusive
	default:
		return run.Success
	}
}
