// Package failure defines the element interaction failure taxonomy.
package failure

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Kind classifies why an interaction failed.
type Kind int

const (
	// Unknown is any failure outside the taxonomy (driver crash, cancelled context).
	Unknown Kind = iota
	// Timeout means the condition never held within the wait deadline.
	Timeout
	// ElementNotInteractable means the element was found but cannot receive the action.
	ElementNotInteractable
	// ElementNotVisible means the element was found but is not rendered visible.
	ElementNotVisible
	// ElementNotSelectable means selection was attempted on a non-selectable control.
	ElementNotSelectable
	// StaleReference means the element handle is no longer attached to the DOM.
	StaleReference
	// NotFound means no element matches the selector.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ElementNotInteractable:
		return "element not interactable"
	case ElementNotVisible:
		return "element not visible"
	case ElementNotSelectable:
		return "element not selectable"
	case StaleReference:
		return "stale element reference"
	case NotFound:
		return "no such element"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrTimeout                = &Error{Kind: Timeout}
	ErrElementNotInteractable = &Error{Kind: ElementNotInteractable}
	ErrElementNotVisible      = &Error{Kind: ElementNotVisible}
	ErrElementNotSelectable   = &Error{Kind: ElementNotSelectable}
	ErrStaleReference         = &Error{Kind: StaleReference}
	ErrNotFound               = &Error{Kind: NotFound}
)

// Error is a classified interaction failure.
type Error struct {
	Kind     Kind
	Op       string
	Selector string
	Err      error
}

// New creates a classified error.
func New(kind Kind, op, selector string, err error) *Error {
	return &Error{Kind: kind, Op: op, Selector: selector, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		if e.Selector != "" {
			msg = fmt.Sprintf("%s %s: %s", e.Op, e.Selector, msg)
		} else {
			msg = fmt.Sprintf("%s: %s", e.Op, msg)
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Selector == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Classify maps err onto the taxonomy. Already classified errors keep their
// kind; expired deadlines and interrupted polls become Timeout. A cancelled
// context stays Unknown so callers see the cancellation.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}
	if k := KindOf(err); k != Unknown {
		return k
	}
	if errors.Is(err, context.Canceled) {
		return Unknown
	}
	if errors.Is(err, context.DeadlineExceeded) || wait.Interrupted(err) {
		return Timeout
	}
	return Unknown
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	return err != nil && Classify(err) == kind
}
