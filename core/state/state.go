// Package state defines the test session state machine.
//
//	Uninitialized -> SettingUp -> Ready -> TornDown
//	                      \________________^
//
// SettingUp may jump to TornDown when setup fails part way. TornDown is
// terminal.
package state

import (
	"fmt"
	"slices"
)

// SessionState is the lifecycle position of a test session.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateSettingUp
	StateReady
	StateTornDown
)

var stateNames = [...]string{
	StateUninitialized: "Uninitialized",
	StateSettingUp:     "SettingUp",
	StateReady:         "Ready",
	StateTornDown:      "TornDown",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
	return stateNames[s]
}

var next = map[SessionState][]SessionState{
	StateUninitialized: {StateSettingUp},
	StateSettingUp:     {StateReady, StateTornDown},
	StateReady:         {StateTornDown},
}

// CanTransitionTo reports whether s may move directly to target.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	return slices.Contains(next[s], target)
}

// ValidTransitions lists the states reachable from s in one step.
func (s SessionState) ValidTransitions() []SessionState {
	return slices.Clone(next[s])
}

func (s SessionState) IsTerminal() bool { return s == StateTornDown }

// CanInteract reports whether driver calls are allowed in s.
func (s SessionState) CanInteract() bool { return s == StateReady }

// TransitionError is returned for a move the state machine forbids.
type TransitionError struct {
	From, To SessionState
	Reason   string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
	if e.Reason == "" {
		return msg
	}
	return msg + ": " + e.Reason
}

func NewTransitionError(from, to SessionState, reason string) *TransitionError {
	return &TransitionError{From: from, To: to, Reason: reason}
}
