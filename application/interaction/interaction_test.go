package interaction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webharness-go/core/failure"
	"webharness-go/core/randutil"
	"webharness-go/infrastructure/browser"
	"webharness-go/infrastructure/browser/browsertest"
)

type testSession struct {
	driver   browser.Driver
	wait     WaitPolicy
	random   *randutil.Source
	failures []string
}

func (s *testSession) Driver() browser.Driver   { return s.driver }
func (s *testSession) Wait() WaitPolicy         { return s.wait }
func (s *testSession) Logger() *slog.Logger     { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
func (s *testSession) Random() *randutil.Source { return s.random }

func (s *testSession) ReportInteractionFailure(op string, sel browser.Selector, err error) {
	s.failures = append(s.failures, op)
}

var fastWait = WaitPolicy{Timeout: 150 * time.Millisecond, Interval: 10 * time.Millisecond}

func newSession(t *testing.T) (*testSession, *browsertest.Driver) {
	t.Helper()
	d := browsertest.New()
	require.NoError(t, d.Start(context.Background()))
	return &testSession{driver: d, wait: fastWait, random: randutil.New(7)}, d
}

var (
	missing = browser.XPath("//div[@id='never']")
	input   = browser.XPath("//input[@name='query']")
	button  = browser.CSS("button.submit")
	units   = browser.CSS("select#units")
)

func TestDefaultWaitPolicy(t *testing.T) {
	wp := DefaultWaitPolicy()
	assert.Equal(t, 5*time.Second, wp.Timeout)
	assert.Equal(t, 250*time.Millisecond, wp.Interval)

	n := WaitPolicy{}.normalized()
	assert.Equal(t, wp, n, "zero policy normalizes to the default")

	n = WaitPolicy{Timeout: 10 * time.Millisecond, Interval: time.Second}.normalized()
	assert.Equal(t, 10*time.Millisecond, n.Interval, "interval is capped at the timeout")
}

func TestNoDriver(t *testing.T) {
	ctx := context.Background()
	s := &testSession{}

	calls := map[string]func() error{
		"click":     func() error { return Click(ctx, s, button, 1) },
		"sendKeys":  func() error { return SendKeys(ctx, s, input, "x") },
		"clear":     func() error { return Clear(ctx, s, input) },
		"readText":  func() error { _, err := ReadText(ctx, s, input); return err },
		"displayed": func() error { _, err := IsDisplayed(ctx, s, input); return err },
		"count":     func() error { _, err := CountElementsImmediate(ctx, s, input); return err },
		"dropdown":  func() error { _, err := LocateDropdown(ctx, s, units); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrNoDriver) {
			t.Errorf("%s error = %v, want ErrNoDriver", name, err)
		}
	}
}

func TestNeverResolving_StrictTimesOutLenientIsFalse(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	strictCalls := map[string]func() error{
		"click":                func() error { return Click(ctx, s, missing, 1) },
		"sendKeys":             func() error { return SendKeys(ctx, s, missing, "x") },
		"clear":                func() error { return Clear(ctx, s, missing) },
		"readText":             func() error { _, err := ReadText(ctx, s, missing); return err },
		"readAttribute":        func() error { _, _, err := ReadAttribute(ctx, s, missing, ""); return err },
		"readCssProperty":      func() error { _, err := ReadCSSProperty(ctx, s, missing, "color"); return err },
		"countVisibleElements": func() error { _, err := CountVisibleElements(ctx, s, missing); return err },
		"waitUntilVisible":     func() error { _, err := WaitUntilVisible(ctx, s, missing); return err },
		"locateDropdown":       func() error { _, err := LocateDropdown(ctx, s, missing); return err },
		"selectByVisibleText":  func() error { return SelectByVisibleText(ctx, s, missing, "A", false) },
		"selectByIndex":        func() error { return SelectByIndex(ctx, s, missing, 1) },
		"readSelected":         func() error { _, err := ReadSelectedOptionText(ctx, s, missing); return err },
		"selectRandomOption":   func() error { _, err := SelectRandomOption(ctx, s, missing); return err },
		"selectOptionOther":    func() error { _, err := SelectOptionOtherThan(ctx, s, missing, "A"); return err },
	}
	for name, call := range strictCalls {
		err := call()
		if !errors.Is(err, failure.ErrTimeout) {
			t.Errorf("%s error = %v, want Timeout", name, err)
		}
		if failure.Classify(err) != failure.Timeout {
			t.Errorf("%s Classify = %v, want Timeout", name, failure.Classify(err))
		}
	}

	checks := map[string]func(context.Context, Session, browser.Selector) (bool, error){
		"isDisplayed": IsDisplayed,
		"isSelected":  IsSelected,
		"isEnabled":   IsEnabled,
	}
	for name, check := range checks {
		got, err := check(ctx, s, missing)
		if err != nil || got {
			t.Errorf("%s = %v, %v; want false, nil", name, got, err)
		}
	}

	assert.Len(t, s.failures, len(strictCalls), "only strict failures are reported")
}

func TestTimeout_WaitsFullDeadline(t *testing.T) {
	s, _ := newSession(t)

	start := time.Now()
	_, err := ReadText(context.Background(), s, missing)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, fastWait.Timeout)
	assert.Less(t, elapsed, fastWait.Timeout+time.Second)
}

func TestTimeout_WrapsLastTransientKind(t *testing.T) {
	s, d := newSession(t)
	node := browsertest.NewNode("div").FailOn("IsDisplayed", failure.New(failure.StaleReference, "IsDisplayed", "", nil))
	d.Add(button, node)

	_, err := WaitUntilVisible(context.Background(), s, button)

	assert.Equal(t, failure.Timeout, failure.KindOf(err))
	assert.ErrorIs(t, err, failure.ErrStaleReference, "last observed kind stays in the chain")
	assert.Greater(t, d.FindCalls(button), 1, "stale elements are re-located")
}

func TestCancelledContext(t *testing.T) {
	s, _ := newSession(t)
	s.wait = WaitPolicy{Timeout: 5 * time.Second, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := ReadText(ctx, s, missing)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEqual(t, failure.Timeout, failure.Classify(err))
}

func TestElementAppearsLater(t *testing.T) {
	s, d := newSession(t)
	d.AddAfter(button, 40*time.Millisecond, browsertest.NewNode("button").WithText("Go"))

	text, err := ReadText(context.Background(), s, button)
	require.NoError(t, err)
	assert.Equal(t, "Go", text)
}

func TestClick_RepeatCount(t *testing.T) {
	tests := []struct {
		repeat     int
		wantClicks int
	}{
		{0, 1},
		{1, 1},
		{3, 3},
	}

	for _, tt := range tests {
		s, d := newSession(t)
		node := browsertest.NewNode("button")
		d.Add(button, node)

		require.NoError(t, Click(context.Background(), s, button, tt.repeat))
		assert.Equal(t, tt.wantClicks, node.Clicks(), "repeat=%d", tt.repeat)
		assert.Equal(t, tt.wantClicks, d.FindCalls(button), "each click re-locates (repeat=%d)", tt.repeat)
	}
}

func TestClick_HiddenIsNotInteractable(t *testing.T) {
	s, d := newSession(t)
	d.Add(button, browsertest.NewNode("button").Hidden())

	err := Click(context.Background(), s, button, 1)
	assert.ErrorIs(t, err, failure.ErrElementNotInteractable)
	assert.Equal(t, []string{"click"}, s.failures)
}

func TestSendKeys_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, d := newSession(t)
	d.Add(input, browsertest.NewNode("input").WithAttr("value", ""))

	require.NoError(t, SendKeys(ctx, s, input, "Crimson Falcon"))

	value, present, err := ReadAttribute(ctx, s, input, "")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, "Crimson Falcon", value)

	require.NoError(t, Clear(ctx, s, input))
	value, _, err = ReadAttribute(ctx, s, input, "value")
	require.NoError(t, err)
	assert.Empty(t, value)

	_, present, err = ReadAttribute(ctx, s, input, "data-missing")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestReadCSSProperty(t *testing.T) {
	s, d := newSession(t)
	d.Add(button, browsertest.NewNode("button").WithCSS("color", "rgb(255, 0, 0)"))

	got, err := ReadCSSProperty(context.Background(), s, button, "color")
	require.NoError(t, err)
	assert.Equal(t, "rgb(255, 0, 0)", got)
}

func TestStateChecks(t *testing.T) {
	ctx := context.Background()
	s, d := newSession(t)
	checkbox := browser.CSS("input[type=checkbox]")
	d.Add(checkbox, browsertest.NewNode("input").WithAttr("type", "checkbox").Checked())
	d.Add(button, browsertest.NewNode("button").Hidden().Disabled())

	displayed, err := IsDisplayed(ctx, s, checkbox)
	require.NoError(t, err)
	assert.True(t, displayed)

	selected, err := IsSelected(ctx, s, checkbox)
	require.NoError(t, err)
	assert.True(t, selected)

	displayed, err = IsDisplayed(ctx, s, button)
	require.NoError(t, err)
	assert.False(t, displayed)

	enabled, err := IsEnabled(ctx, s, button)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestStateChecks_Policy(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"not interactable is false", failure.New(failure.ElementNotInteractable, "IsDisplayed", "", nil), false},
		{"not found is false", failure.New(failure.NotFound, "IsDisplayed", "", nil), false},
		{"not selectable propagates", failure.New(failure.ElementNotSelectable, "IsDisplayed", "", nil), true},
		{"unknown propagates", errors.New("driver crashed"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d := newSession(t)
			d.Add(button, browsertest.NewNode("button").FailOn("IsDisplayed", tt.err))

			got, err := IsDisplayed(context.Background(), s, button)
			assert.False(t, got)
			if (err != nil) != tt.wantErr {
				t.Errorf("IsDisplayed() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCountVisibleElements(t *testing.T) {
	s, d := newSession(t)
	item := browser.CSS("li.pod")
	d.Add(item,
		browsertest.NewNode("li"),
		browsertest.NewNode("li").Hidden(),
		browsertest.NewNode("li"),
	)

	n, err := CountVisibleElements(context.Background(), s, item)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "every located match is counted")

	hidden := browser.CSS("li.hidden")
	d.Add(hidden, browsertest.NewNode("li").Hidden(), browsertest.NewNode("li").Hidden())
	n, err = CountVisibleElements(context.Background(), s, hidden)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "hidden matches are located")
}

func TestCountVisibleElements_WaitsForLateMatches(t *testing.T) {
	s, d := newSession(t)
	late := browser.CSS("li.late")
	d.AddAfter(late, 30*time.Millisecond, browsertest.NewNode("li"), browsertest.NewNode("li"))

	n, err := CountVisibleElements(context.Background(), s, late)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCountElementsImmediate(t *testing.T) {
	s, d := newSession(t)
	s.wait = WaitPolicy{Timeout: 5 * time.Second, Interval: time.Second}

	start := time.Now()
	n, err := CountElementsImmediate(context.Background(), s, missing)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "must not wait")
	assert.Equal(t, 1, d.FindCalls(missing))

	d.Add(button, browsertest.NewNode("button"), browsertest.NewNode("button").Hidden())
	n, err = CountElementsImmediate(context.Background(), s, button)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWaitUntilVisible(t *testing.T) {
	s, d := newSession(t)
	d.Add(button, browsertest.NewNode("button").WithText("Search"))

	el, err := WaitUntilVisible(context.Background(), s, button)
	require.NoError(t, err)
	text, err := el.Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Search", text)
}

func TestDriverStopped(t *testing.T) {
	s, d := newSession(t)
	require.NoError(t, d.Quit())

	start := time.Now()
	_, err := ReadText(context.Background(), s, button)
	assert.ErrorIs(t, err, browser.ErrNotRunning)
	assert.Less(t, time.Since(start), fastWait.Timeout, "a stopped driver fails without waiting")
}

func TestMetrics(t *testing.T) {
	s, d := newSession(t)
	d.Add(button, browsertest.NewNode("button"))

	okBefore := testutil.ToFloat64(metricInteractions.WithLabelValues("click", resultOK))
	timeoutBefore := testutil.ToFloat64(metricInteractions.WithLabelValues("readText", "timeout"))
	falseBefore := testutil.ToFloat64(metricInteractions.WithLabelValues("isEnabled", resultFalse))

	require.NoError(t, Click(context.Background(), s, button, 2))
	_, _ = ReadText(context.Background(), s, missing)
	_, _ = IsEnabled(context.Background(), s, missing)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(metricInteractions.WithLabelValues("click", resultOK)))
	assert.Equal(t, timeoutBefore+1, testutil.ToFloat64(metricInteractions.WithLabelValues("readText", "timeout")))
	assert.Equal(t, falseBefore+1, testutil.ToFloat64(metricInteractions.WithLabelValues("isEnabled", resultFalse)))
}
