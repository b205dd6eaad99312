package flow

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is what an expect expression can see.
type Env struct {
	Text      string            `expr:"text"`
	Value     string            `expr:"value"`
	Count     int               `expr:"count"`
	Displayed bool              `expr:"displayed"`
	Enabled   bool              `expr:"enabled"`
	Selected  bool              `expr:"selected"`
	Vars      map[string]string `expr:"vars"`
}

// Compile compiles a boolean expect expression against Env.
func Compile(expression string) (*vm.Program, error) {
	return expr.Compile(expression,
		expr.Env(Env{}),
		expr.AsBool(),
	)
}

// Evaluate runs the step's expect expression against env. Steps without
// an expression evaluate to true. Validate compiles the expression once;
// unvalidated steps compile on every call.
func (s *Step) Evaluate(env Env) (bool, error) {
	if s.Expect == "" {
		return true, nil
	}
	program := s.program
	if program == nil {
		var err error
		if program, err = Compile(s.Expect); err != nil {
			return false, fmt.Errorf("invalid expect: %w", err)
		}
	}

	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("expect evaluation failed: %w", err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expect returned non-boolean result: %T", result)
	}
	return b, nil
}
