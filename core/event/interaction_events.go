package event

import "webharness-go/core/failure"

// InteractionFailed is published when a strict interaction propagates a failure.
type InteractionFailed struct {
	baseSessionEvent
	Op       string
	Selector string
	Kind     failure.Kind
	Error    error
}

func NewInteractionFailed(sessionID, op, selector string, err error) *InteractionFailed {
	return &InteractionFailed{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Op:               op,
		Selector:         selector,
		Kind:             failure.Classify(err),
		Error:            err,
	}
}

func (e *InteractionFailed) EventName() string {
	return "InteractionFailed"
}

// StepExecuted is published after each flow step.
type StepExecuted struct {
	baseSessionEvent
	Index  int
	Action string
	Passed bool
}

func NewStepExecuted(sessionID string, index int, action string, passed bool) *StepExecuted {
	return &StepExecuted{
		baseSessionEvent: baseSessionEvent{sessionID: sessionID},
		Index:            index,
		Action:           action,
		Passed:           passed,
	}
}

func (e *StepExecuted) EventName() string {
	return "StepExecuted"
}
