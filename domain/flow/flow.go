// Package flow defines declarative UI test cases and their steps.
package flow

import (
	"fmt"
	"regexp"
	"time"

	"github.com/expr-lang/expr/vm"
)

// Flow is a named test case: an ordered list of steps run in one session.
type Flow struct {
	// Name is the unique identifier and the test name used for artifacts
	Name string

	Description string

	// Tags group flows for selective runs
	Tags []string

	// UI controls whether the session starts a browser
	UI bool

	// Navigate opens the application URL right after setup
	Navigate bool

	// Vars seed the variables available to ${name} substitution
	Vars map[string]string

	Steps []Step
}

// ActionType represents the type of a step.
type ActionType string

const (
	ActionTypeNavigate        ActionType = "navigate"
	ActionTypeClick           ActionType = "click"
	ActionTypeType            ActionType = "type"
	ActionTypeClear           ActionType = "clear"
	ActionTypeSelect          ActionType = "select"
	ActionTypeWait            ActionType = "wait"
	ActionTypeWaitVisible     ActionType = "waitVisible"
	ActionTypeAssertDisplayed ActionType = "assertDisplayed"
	ActionTypeAssertText      ActionType = "assertText"
	ActionTypeAssertAttribute ActionType = "assertAttribute"
	ActionTypeAssertCount     ActionType = "assertCount"
	ActionTypeAssertEnabled   ActionType = "assertEnabled"
	ActionTypeAssertSelected  ActionType = "assertSelected"
	ActionTypeAssertCSS       ActionType = "assertCss"
)

// IsAssertion returns true for steps that record an assertion.
func (a ActionType) IsAssertion() bool {
	switch a {
	case ActionTypeAssertDisplayed, ActionTypeAssertText, ActionTypeAssertAttribute, ActionTypeAssertCount,
		ActionTypeAssertEnabled, ActionTypeAssertSelected, ActionTypeAssertCSS:
		return true
	default:
		return false
	}
}

// needsTarget returns true for steps that act on an element.
func (a ActionType) needsTarget() bool {
	switch a {
	case ActionTypeNavigate, ActionTypeWait:
		return false
	default:
		return true
	}
}

// Step is one action of a flow.
type Step struct {
	Action ActionType

	// Target is a "page.element" reference or a raw "xpath=" / "css=" selector
	Target string

	// URL is used by navigate. Empty means the application URL; a value
	// starting with "/" is appended to it.
	URL string

	// Text is typed by type steps. ${name} references are substituted.
	Text string

	// Submit sends Enter after typing
	Submit bool

	// SaveAs stores the typed text under this variable name
	SaveAs string

	// Count is the click repeat count
	Count int

	// Option picks the option for select steps
	Option *Selection

	// Duration is the pause for wait steps
	Duration time.Duration

	// Attribute is read by assertAttribute. Empty means "value".
	Attribute string

	// Property is the CSS property read by assertCss
	Property string

	// Wait makes assertCount wait until at least one element matches
	Wait bool

	// Equals and Contains compare the observed value of an assertion
	Equals   string
	Contains string

	// Expect is an expr-lang boolean over the fields of Env
	Expect string

	program *vm.Program
}

// Selection picks one option of a dropdown. Exactly one field is set.
type Selection struct {
	Text      string
	Partial   bool
	Index     *int
	Random    bool
	OtherThan string
}

// Mode names the selection strategy, for logs.
func (s *Selection) Mode() string {
	switch {
	case s == nil:
		return "none"
	case s.Index != nil:
		return "index"
	case s.Random:
		return "random"
	case s.OtherThan != "":
		return "otherThan"
	case s.Partial:
		return "partialText"
	default:
		return "text"
	}
}

func (s *Selection) validate() error {
	if s == nil {
		return fmt.Errorf("select requires an option")
	}
	modes := 0
	if s.Text != "" {
		modes++
	}
	if s.Index != nil {
		modes++
		if *s.Index < 0 {
			return fmt.Errorf("option index (%d) cannot be negative", *s.Index)
		}
	}
	if s.Random {
		modes++
	}
	if s.OtherThan != "" {
		modes++
	}
	if modes != 1 {
		return fmt.Errorf("option must set exactly one of text, index, random, otherThan")
	}
	if s.Partial && s.Text == "" {
		return fmt.Errorf("partial applies only to text options")
	}
	return nil
}

// Validate checks every step and compiles expect expressions.
func (f *Flow) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("flow name is required")
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %s has no steps", f.Name)
	}
	for i := range f.Steps {
		if err := f.Steps[i].validate(f.UI); err != nil {
			return fmt.Errorf("flow %s step %d (%s): %w", f.Name, i+1, f.Steps[i].Action, err)
		}
	}
	return nil
}

func (s *Step) validate(ui bool) error {
	switch s.Action {
	case ActionTypeNavigate, ActionTypeClick, ActionTypeType, ActionTypeClear, ActionTypeSelect,
		ActionTypeWait, ActionTypeWaitVisible, ActionTypeAssertDisplayed, ActionTypeAssertText,
		ActionTypeAssertAttribute, ActionTypeAssertCount, ActionTypeAssertEnabled, ActionTypeAssertSelected,
		ActionTypeAssertCSS:
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}

	if s.Action != ActionTypeWait && !ui {
		return fmt.Errorf("browser steps require ui: true")
	}
	if s.Action.needsTarget() && s.Target == "" {
		return fmt.Errorf("target is required")
	}

	switch s.Action {
	case ActionTypeClick:
		if s.Count < 0 {
			return fmt.Errorf("count (%d) cannot be negative", s.Count)
		}
	case ActionTypeType:
		if s.Text == "" && !s.Submit {
			return fmt.Errorf("type requires text or submit")
		}
	case ActionTypeSelect:
		if err := s.Option.validate(); err != nil {
			return err
		}
	case ActionTypeWait:
		if s.Duration <= 0 {
			return fmt.Errorf("wait requires a positive duration")
		}
	case ActionTypeAssertText, ActionTypeAssertAttribute, ActionTypeAssertCount, ActionTypeAssertCSS:
		if s.Equals == "" && s.Contains == "" && s.Expect == "" {
			return fmt.Errorf("assertion requires equals, contains or expect")
		}
	}
	if s.Action == ActionTypeAssertCSS && s.Property == "" {
		return fmt.Errorf("assertCss requires property")
	}
	if s.Wait && s.Action != ActionTypeAssertCount {
		return fmt.Errorf("wait applies only to assertCount")
	}

	if s.Expect != "" {
		if !s.Action.IsAssertion() {
			return fmt.Errorf("expect applies only to assertions")
		}
		program, err := Compile(s.Expect)
		if err != nil {
			return fmt.Errorf("invalid expect: %w", err)
		}
		s.program = program
	}
	return nil
}

// ClickCount returns the number of clicks, at least one.
func (s *Step) ClickCount() int {
	if s.Count < 1 {
		return 1
	}
	return s.Count
}

// AttributeName returns the attribute read by assertAttribute.
func (s *Step) AttributeName() string {
	if s.Attribute == "" {
		return "value"
	}
	return s.Attribute
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// Expand substitutes ${name} references from vars. Unknown names are left intact.
func Expand(s string, vars map[string]string) string {
	if len(vars) == 0 {
		return s
	}
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		name := varPattern.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}
