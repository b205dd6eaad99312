package flow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const searchFlow = `
name: search
description: Random search round trip
tags: [smoke]
vars:
  greeting: hello
steps:
  - action: waitVisible
    target: landing.categories
  - action: type
    target: landing.searchInput
    text: "${greeting} world"
    submit: true
    saveAs: term
  - action: select
    target: css=select#units
    option:
      index: 2
  - action: click
    target: xpath=//button
    count: 3
  - action: wait
    duration: 150ms
  - action: assertAttribute
    target: results.searchInput
    equals: "${term}"
  - action: assertCount
    target: results.pods
    expect: count >= 2 && vars.term != ""
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(searchFlow))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	index := 2
	want := &Flow{
		Name:        "search",
		Description: "Random search round trip",
		Tags:        []string{"smoke"},
		UI:          true,
		Navigate:    true,
		Vars:        map[string]string{"greeting": "hello"},
		Steps: []Step{
			{Action: ActionTypeWaitVisible, Target: "landing.categories"},
			{Action: ActionTypeType, Target: "landing.searchInput", Text: "${greeting} world", Submit: true, SaveAs: "term"},
			{Action: ActionTypeSelect, Target: "css=select#units", Option: &Selection{Index: &index}},
			{Action: ActionTypeClick, Target: "xpath=//button", Count: 3},
			{Action: ActionTypeWait, Duration: 150 * time.Millisecond},
			{Action: ActionTypeAssertAttribute, Target: "results.searchInput", Equals: "${term}"},
			{Action: ActionTypeAssertCount, Target: "results.pods", Expect: `count >= 2 && vars.term != ""`},
		},
	}

	if diff := cmp.Diff(want, f, cmpopts.IgnoreUnexported(Step{})); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if f.Steps[6].program == nil {
		t.Error("expect expression should be compiled at parse time")
	}
}

func TestParse_Defaults(t *testing.T) {
	f, err := Parse([]byte("name: api\nui: false\nsteps:\n  - action: wait\n    duration: 1s\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.UI {
		t.Error("UI = true, want false")
	}
	if !f.Navigate {
		t.Error("Navigate should default to true")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"no name", "steps:\n  - action: wait\n    duration: 1s\n", "name is required"},
		{"no steps", "name: x\n", "no steps"},
		{"unknown action", "name: x\nsteps:\n  - action: hover\n    target: //a\n", "unknown action"},
		{"missing target", "name: x\nsteps:\n  - action: click\n", "target is required"},
		{"browser step without ui", "name: x\nui: false\nsteps:\n  - action: click\n    target: //a\n", "ui: true"},
		{"two select modes", "name: x\nsteps:\n  - action: select\n    target: //s\n    option: {index: 1, random: true}\n", "exactly one"},
		{"no select option", "name: x\nsteps:\n  - action: select\n    target: //s\n", "requires an option"},
		{"negative index", "name: x\nsteps:\n  - action: select\n    target: //s\n    option: {index: -1}\n", "negative"},
		{"zero wait", "name: x\nsteps:\n  - action: wait\n", "positive duration"},
		{"bad duration", "name: x\nsteps:\n  - action: wait\n    duration: soon\n", "duration"},
		{"assertion without check", "name: x\nsteps:\n  - action: assertText\n    target: //a\n", "equals, contains or expect"},
		{"expect on action", "name: x\nsteps:\n  - action: click\n    target: //a\n    expect: 'true'\n", "only to assertions"},
		{"expect syntax", "name: x\nsteps:\n  - action: assertText\n    target: //a\n    expect: 'text =='\n", "invalid expect"},
		{"css without property", "name: x\nsteps:\n  - action: assertCss\n    target: //a\n    equals: red\n", "requires property"},
		{"wait outside assertCount", "name: x\nsteps:\n  - action: assertText\n    target: //a\n    equals: a\n    wait: true\n", "only to assertCount"},
		{"expect not bool", "name: x\nsteps:\n  - action: assertText\n    target: //a\n    expect: 'count + 1'\n", "invalid expect"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatalf("Parse() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_StateAssertions(t *testing.T) {
	doc := `
name: form-state
steps:
  - action: assertEnabled
    target: form.submit
  - action: assertSelected
    target: form.terms
    expect: selected && vars.mode == "strict"
  - action: assertCss
    target: form.submit
    property: background-color
    contains: "rgb("
  - action: assertCount
    target: results.row
    wait: true
    expect: count >= 2
`
	f, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(f.Steps) != 4 {
		t.Fatalf("len(Steps) = %d, want 4", len(f.Steps))
	}
	for _, step := range f.Steps {
		if !step.Action.IsAssertion() {
			t.Errorf("%s.IsAssertion() = false, want true", step.Action)
		}
	}
	if f.Steps[2].Property != "background-color" {
		t.Errorf("Property = %q, want background-color", f.Steps[2].Property)
	}
	if !f.Steps[3].Wait {
		t.Error("Wait = false, want true")
	}

	ok, err := f.Steps[1].Evaluate(Env{Selected: true, Vars: map[string]string{"mode": "strict"}})
	if err != nil || !ok {
		t.Errorf("Evaluate() = %v, %v; want true, nil", ok, err)
	}
}

func TestStep_Evaluate(t *testing.T) {
	step := Step{Action: ActionTypeAssertText, Target: "//a", Expect: `text contains vars.term && displayed`}
	if err := step.validate(true); err != nil {
		t.Fatalf("validate() error = %v", err)
	}

	tests := []struct {
		env  Env
		want bool
	}{
		{Env{Text: "result for wolf", Displayed: true, Vars: map[string]string{"term": "wolf"}}, true},
		{Env{Text: "result for bear", Displayed: true, Vars: map[string]string{"term": "wolf"}}, false},
		{Env{Text: "result for wolf", Displayed: false, Vars: map[string]string{"term": "wolf"}}, false},
	}

	for _, tt := range tests {
		got, err := step.Evaluate(tt.env)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("Evaluate(%+v) = %v, want %v", tt.env, got, tt.want)
		}
	}

	empty := Step{Action: ActionTypeAssertText}
	if ok, err := empty.Evaluate(Env{}); !ok || err != nil {
		t.Errorf("Evaluate() without expect = %v, %v; want true, nil", ok, err)
	}
}

func TestExpand(t *testing.T) {
	vars := map[string]string{"term": "wolf", "page.name": "landing"}

	tests := []struct {
		in   string
		want string
	}{
		{"${term}", "wolf"},
		{"find ${term} on ${page.name}", "find wolf on landing"},
		{"${missing} stays", "${missing} stays"},
		{"$term is not a reference", "$term is not a reference"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := Expand(tt.in, vars); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Expand("${term}", nil); got != "${term}" {
		t.Errorf("Expand with nil vars = %q, want input unchanged", got)
	}
}

func TestStep_Helpers(t *testing.T) {
	if got := (&Step{}).ClickCount(); got != 1 {
		t.Errorf("ClickCount() = %d, want 1", got)
	}
	if got := (&Step{Count: 4}).ClickCount(); got != 4 {
		t.Errorf("ClickCount() = %d, want 4", got)
	}
	if got := (&Step{}).AttributeName(); got != "value" {
		t.Errorf("AttributeName() = %q, want value", got)
	}

	idx := 0
	modes := map[string]*Selection{
		"none":        nil,
		"text":        {Text: "A"},
		"partialText": {Text: "A", Partial: true},
		"index":       {Index: &idx},
		"random":      {Random: true},
		"otherThan":   {OtherThan: "Bear"},
	}
	for want, sel := range modes {
		if got := sel.Mode(); got != want {
			t.Errorf("Mode() = %q, want %q", got, want)
		}
	}
}

func TestLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"flows/search.yaml": {Data: []byte(searchFlow)},
		"flows/api.yaml":    {Data: []byte("name: api\nui: false\ntags: [smoke, fast]\nsteps:\n  - action: wait\n    duration: 1ms\n")},
		"flows/notes.txt":   {Data: []byte("ignored")},
	}

	registry := NewRegistry()
	loader := NewLoader(registry)
	if err := loader.LoadFromFS(fsys); err != nil {
		t.Fatalf("LoadFromFS() error = %v", err)
	}

	if diff := cmp.Diff([]string{"api", "search"}, registry.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if !registry.Exists("search") || registry.Exists("notes") {
		t.Error("Exists() reported wrong membership")
	}
	if got := len(registry.Tagged("smoke")); got != 2 {
		t.Errorf("len(Tagged(smoke)) = %d, want 2", got)
	}
	if got := len(registry.Tagged("fast")); got != 1 {
		t.Errorf("len(Tagged(fast)) = %d, want 1", got)
	}

	path := filepath.Join(t.TempDir(), "extra.yaml")
	if err := os.WriteFile(path, []byte("name: extra\nsteps:\n  - action: navigate\n"), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if f.Name != "extra" || registry.Count() != 3 {
		t.Errorf("LoadFile() registered %q, count %d; want extra, 3", f.Name, registry.Count())
	}
}

func TestLoader_BadFile(t *testing.T) {
	fsys := fstest.MapFS{"flows/bad.yaml": {Data: []byte("name: bad\nsteps: [")}}
	err := NewLoader(NewRegistry()).LoadFromFS(fsys)
	if err == nil || !strings.Contains(err.Error(), "flows/bad.yaml") {
		t.Errorf("LoadFromFS() error = %v, want it to name the file", err)
	}
}
