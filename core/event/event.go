// Package event defines the events published while tests run.
// Sessions and the flow runner publish them; reporters subscribe.
package event

import (
	"time"

	"webharness-go/core/state"
)

// Event is the base interface for all events.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// SessionEvent is an event that originates from a specific test session.
type SessionEvent interface {
	Event
	// SessionID returns the logger id of the source session
	SessionID() string
}

type baseSessionEvent struct {
	sessionID string
}

func (e *baseSessionEvent) SessionID() string {
	return e.sessionID
}

// SessionStarted is published when setup completes and the session is Ready.
type SessionStarted struct {
	baseSessionEvent
	TestName string
	UITest   bool
}

func NewSessionStarted(sessionID, testName string, uiTest bool) *SessionStarted {
	return &SessionStarted{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		TestName:         testName,
		UITest:           uiTest,
	}
}

func (e *SessionStarted) EventName() string {
	return "SessionStarted"
}

// SessionStateChanged is published on every lifecycle transition.
type SessionStateChanged struct {
	baseSessionEvent
	OldState state.SessionState
	NewState state.SessionState
}

func NewSessionStateChanged(sessionID string, oldState, newState state.SessionState) *SessionStateChanged {
	return &SessionStateChanged{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		OldState:         oldState,
		NewState:         newState,
	}
}

func (e *SessionStateChanged) EventName() string {
	return "SessionStateChanged"
}

// SessionTornDown is published after teardown released the driver and closed the log.
type SessionTornDown struct {
	baseSessionEvent
	Outcome     string
	Attachments []string
	Error       error // nil if teardown was clean
}

func NewSessionTornDown(sessionID, outcome string, attachments []string, err error) *SessionTornDown {
	return &SessionTornDown{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Outcome:          outcome,
		Attachments:      attachments,
		Error:            err,
	}
}

func (e *SessionTornDown) EventName() string {
	return "SessionTornDown"
}

// FlowStarted is published when the runner begins a flow.
type FlowStarted struct {
	baseSessionEvent
	Flow string
}

func NewFlowStarted(sessionID, flow string) *FlowStarted {
	return &FlowStarted{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Flow:             flow,
	}
}

func (e *FlowStarted) EventName() string {
	return "FlowStarted"
}

// FlowFinished is published once a flow's session is torn down.
type FlowFinished struct {
	baseSessionEvent
	Flow     string
	Outcome  string
	Duration time.Duration
	Error    error
}

func NewFlowFinished(sessionID, flow, outcome string, d time.Duration, err error) *FlowFinished {
	return &FlowFinished{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Flow:             flow,
		Outcome:          outcome,
		Duration:         d,
		Error:            err,
	}
}

func (e *FlowFinished) EventName() string {
	return "FlowFinished"
}
