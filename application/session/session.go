// Package session owns the lifecycle of one test execution: it binds the
// per-test log, builds and starts the browser, hands the session to
// interactions and captures diagnostics at teardown.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"webharness-go/application/interaction"
	"webharness-go/core/event"
	"webharness-go/core/eventbus"
	"webharness-go/core/randutil"
	"webharness-go/core/state"
	"webharness-go/domain/run"
	"webharness-go/infrastructure/browser"
	"webharness-go/infrastructure/config"
	"webharness-go/infrastructure/logging"
)

// ErrNotReady is returned by operations that need a Ready session.
var ErrNotReady = errors.New("session not ready")

// screenshotTimeout bounds the teardown screenshot.
const screenshotTimeout = 10 * time.Second

// TestContext is what the session needs from the running test.
type TestContext interface {
	// Name is the current test name. It prefixes the artifact files.
	Name() string
	// Assertions returns the assertions recorded so far.
	Assertions() []run.Assertion
	// AddAttachment attaches a file to the test report.
	AddAttachment(path string)
}

// Configuration is fixed at setup.
type Configuration struct {
	UITest      bool
	Headless    bool
	Incognito   bool
	PipelineRun bool
	Browser     browser.Kind
	TargetURL   string
	EdgeBinary  string
	ArtifactDir string
}

// Options controls one Setup call.
type Options struct {
	// UITest starts a browser. Non-UI sessions have no driver.
	UITest bool

	// Headless overrides the Headless parameter when set.
	Headless *bool

	// NavigateOnSetup opens the application URL once the session is Ready.
	NavigateOnSetup bool

	// Factory builds the driver. Defaults to browser.NewDriver.
	Factory browser.Factory

	// EventBus receives lifecycle and failure events. Optional.
	EventBus eventbus.EventBus

	// Random drives random selections. Defaults to a source seeded from
	// the RandomSeed parameter.
	Random *randutil.Source

	// Logger is the process logger; per-test lines go to the test log.
	Logger *slog.Logger
}

// Session is the per-test context passed to every interaction.
type Session struct {
	tc       TestContext
	cfg      Configuration
	testName string
	loggerID string

	driver browser.Driver
	wait   interaction.WaitPolicy
	random *randutil.Source

	log       *logging.TestLog
	logger    *slog.Logger
	procLog   *slog.Logger
	bus       eventbus.EventBus
	screenCap *ScreenCapture

	mu          sync.RWMutex
	state       state.SessionState
	attachments []string
}

var _ interaction.Session = (*Session)(nil)
var _ interaction.FailureReporter = (*Session)(nil)

// Setup binds the test log, then, for UI tests, builds and starts the
// browser. On failure the partial session is torn down and the error
// returned. Each call creates an independent session.
func Setup(ctx context.Context, tc TestContext, params *config.Parameters, opts Options) (*Session, error) {
	if params == nil {
		params = config.DefaultParameters()
	}
	procLog := opts.Logger
	if procLog == nil {
		procLog = logging.L()
	}

	headless := params.Headless
	if opts.Headless != nil {
		headless = *opts.Headless
	}

	random := opts.Random
	if random == nil {
		random = randutil.New(params.RandomSeed)
	}

	s := &Session{
		tc: tc,
		cfg: Configuration{
			UITest:      opts.UITest,
			Headless:    headless,
			Incognito:   params.EnableIncognito,
			PipelineRun: params.PipelineRun,
			Browser:     params.TargetBrowser,
			TargetURL:   params.ApplicationURL,
			EdgeBinary:  params.EdgeBrowserBinaryLocation,
			ArtifactDir: params.ArtifactDir,
		},
		testName: tc.Name(),
		random:   random,
		procLog:  procLog,
		bus:      opts.EventBus,
		state:    state.StateUninitialized,
	}
	s.loggerID = fmt.Sprintf("%s-%s", fileSafe(s.testName), randutil.ShortUID())

	if err := s.transitionTo(state.StateSettingUp); err != nil {
		return nil, err
	}

	log, err := logging.OpenTestLog(s.cfg.ArtifactDir, s.loggerID)
	if err != nil {
		s.abort(err)
		return nil, fmt.Errorf("failed to open test log: %w", err)
	}
	s.log = log
	s.logger = log.Logger().With("test", s.testName)
	s.logger.Debug("Session configuration",
		"ui", s.cfg.UITest,
		"browser", string(s.cfg.Browser),
		"headless", s.cfg.Headless,
		"incognito", s.cfg.Incognito,
		"pipeline", s.cfg.PipelineRun,
		"target_url", s.cfg.TargetURL,
		"seed", random.Seed(),
	)

	if s.cfg.UITest {
		if err := s.startDriver(ctx, params, opts.Factory); err != nil {
			s.abort(err)
			return nil, err
		}
		s.wait = interaction.WaitPolicy{Timeout: params.WaitTimeout, Interval: params.PollInterval}
	}

	if err := s.transitionTo(state.StateReady); err != nil {
		s.abort(err)
		return nil, err
	}
	s.publish(event.NewSessionStarted(s.loggerID, s.testName, s.cfg.UITest))
	s.procLog.Info("Session ready", "test", s.testName, "logger_id", s.loggerID, "ui", s.cfg.UITest)

	if opts.NavigateOnSetup && s.cfg.UITest {
		if err := s.NavigateToTargetURL(ctx); err != nil {
			_ = s.Teardown(ctx, run.Failure)
			return nil, err
		}
	}

	return s, nil
}

func (s *Session) startDriver(ctx context.Context, params *config.Parameters, factory browser.Factory) error {
	if s.cfg.Browser == browser.None {
		return fmt.Errorf("failed to create driver: %w: set TargetBrowser to Chrome or Edge", browser.ErrUnsupportedBrowser)
	}
	if factory == nil {
		factory = browser.NewDriver
	}

	dcfg := params.DriverConfig(s.cfg.Headless)
	dcfg.Logger = s.logger

	driver, err := factory(dcfg)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	s.driver = driver
	s.screenCap = NewScreenCapture(driver, s.cfg.ArtifactDir, s.logger)

	if err := driver.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	s.logger.Debug("Browser started", "browser", string(s.cfg.Browser))
	return nil
}

// abort releases whatever setup acquired before failing.
func (s *Session) abort(cause error) {
	if s.logger != nil {
		s.logger.Error("Setup failed", "error", cause)
	}
	if s.driver != nil {
		if err := s.driver.Quit(); err != nil && s.logger != nil {
			s.logger.Error("Failed to quit browser", "error", err)
		}
	}
	if s.log != nil {
		_ = s.log.Close()
	}
	_ = s.transitionTo(state.StateTornDown)
	s.procLog.Error("Session setup failed", "test", s.testName, "error", cause)
}

// NavigateToTargetURL loads the configured application URL.
func (s *Session) NavigateToTargetURL(ctx context.Context) error {
	return s.Navigate(ctx, s.cfg.TargetURL)
}

// Navigate loads url. The session must be Ready and have a driver.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if st := s.State(); !st.CanInteract() {
		return fmt.Errorf("%w: state is %s", ErrNotReady, st)
	}
	if s.driver == nil {
		return interaction.ErrNoDriver
	}

	s.logger.Debug("Navigating", "url", url)
	if err := s.driver.Navigate(ctx, url); err != nil {
		s.logger.Error("Navigation failed", "url", url, "error", err)
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Teardown captures diagnostics according to outcome, releases the
// browser and closes the test log. A nil session is a no-op. Screenshot
// and quit failures are logged and joined; they never skip later steps.
func (s *Session) Teardown(ctx context.Context, outcome run.Outcome) error {
	if s == nil {
		return nil
	}
	if st := s.State(); !st.CanTransitionTo(state.StateTornDown) {
		return state.NewTransitionError(st, state.StateTornDown, "teardown requires a Ready session")
	}

	var errs []error
	s.logger.Debug("Teardown", "outcome", outcome.String())

	if outcome == run.Failure {
		for _, a := range s.tc.Assertions() {
			s.logger.Error("Assertion", "status", string(a.Status), "message", a.Message, "stack", a.StackTrace)
		}
	}
	s.attach(s.log.Path())

	if outcome == run.Failure && s.cfg.UITest && s.screenCap != nil {
		shotCtx, cancel := context.WithTimeout(ctx, screenshotTimeout)
		path, err := s.screenCap.CaptureToFile(shotCtx, s.loggerID)
		cancel()
		if err != nil {
			s.logger.Error("Screenshot failed", "error", err)
			errs = append(errs, err)
		} else {
			s.attach(path)
		}
	}

	if s.cfg.UITest && s.driver != nil {
		if err := s.driver.Quit(); err != nil {
			s.logger.Error("Failed to quit browser", "error", err)
			errs = append(errs, fmt.Errorf("failed to quit browser: %w", err))
		}
	}

	s.logger.Debug("Session torn down", "outcome", outcome.String(), "attachments", len(s.Attachments()))
	if err := s.log.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close test log: %w", err))
	}

	_ = s.transitionTo(state.StateTornDown)
	err := errors.Join(errs...)
	s.publish(event.NewSessionTornDown(s.loggerID, outcome.String(), s.Attachments(), err))
	s.procLog.Info("Session torn down", "test", s.testName, "outcome", outcome.String())
	return err
}

func (s *Session) attach(path string) {
	s.mu.Lock()
	s.attachments = append(s.attachments, path)
	s.mu.Unlock()
	s.tc.AddAttachment(path)
}

// Driver returns the browser driver, nil for non-UI sessions.
func (s *Session) Driver() browser.Driver {
	return s.driver
}

// Wait returns the wait policy shared by every interaction of the session.
func (s *Session) Wait() interaction.WaitPolicy {
	return s.wait
}

// Logger returns the per-test logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Random returns the session's random source.
func (s *Session) Random() *randutil.Source {
	return s.random
}

// ReportInteractionFailure publishes strict interaction failures.
func (s *Session) ReportInteractionFailure(op string, sel browser.Selector, err error) {
	s.publish(event.NewInteractionFailed(s.loggerID, op, sel.String(), err))
}

// State returns the current lifecycle state.
func (s *Session) State() state.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Config returns the configuration fixed at setup.
func (s *Session) Config() Configuration {
	return s.cfg
}

// TestName returns the test name.
func (s *Session) TestName() string {
	return s.testName
}

// LoggerID returns {testName}-{uid}, the base name of the artifact files.
func (s *Session) LoggerID() string {
	return s.loggerID
}

// LogPath returns the test log file path.
func (s *Session) LogPath() string {
	return filepath.Join(s.cfg.ArtifactDir, s.loggerID+".txt")
}

// Attachments returns the files attached so far.
func (s *Session) Attachments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.attachments...)
}

func (s *Session) transitionTo(newState state.SessionState) error {
	s.mu.Lock()
	oldState := s.state

	if !oldState.CanTransitionTo(newState) {
		s.mu.Unlock()
		return state.NewTransitionError(oldState, newState, "invalid transition")
	}

	s.state = newState
	s.mu.Unlock()

	s.publish(event.NewSessionStateChanged(s.loggerID, oldState, newState))
	if s.logger != nil {
		s.logger.Debug("State changed", "from", oldState, "to", newState)
	}
	return nil
}

func (s *Session) publish(e event.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

// fileSafe makes a test name usable as a file name. Subtest names contain '/'.
func fileSafe(name string) string {
	if name == "" {
		return "test"
	}
	return unsafeName.Replace(name)
}
