package flow

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v3"
)

// Dir is the directory, relative to the loaded filesystem, holding flows.
const Dir = "flows"

// yamlFlow is the YAML structure for flow definitions.
type yamlFlow struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Tags        []string          `yaml:"tags"`
	UI          *bool             `yaml:"ui"`
	Navigate    *bool             `yaml:"navigate"`
	Vars        map[string]string `yaml:"vars"`
	Steps       []yamlStep        `yaml:"steps"`
}

type yamlStep struct {
	Action    string         `yaml:"action"`
	Target    string         `yaml:"target"`
	URL       string         `yaml:"url"`
	Text      string         `yaml:"text"`
	Submit    bool           `yaml:"submit"`
	SaveAs    string         `yaml:"saveAs"`
	Count     int            `yaml:"count"`
	Option    *yamlSelection `yaml:"option"`
	Duration  duration       `yaml:"duration"`
	Attribute string         `yaml:"attribute"`
	Property  string         `yaml:"property"`
	Wait      bool           `yaml:"wait"`
	Equals    string         `yaml:"equals"`
	Contains  string         `yaml:"contains"`
	Expect    string         `yaml:"expect"`
}

type yamlSelection struct {
	Text      string `yaml:"text"`
	Partial   bool   `yaml:"partial"`
	Index     *int   `yaml:"index"`
	Random    bool   `yaml:"random"`
	OtherThan string `yaml:"otherThan"`
}

// duration is a wrapper for time.Duration that handles YAML parsing.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Loader handles loading flow definitions into a registry.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new flow loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads every .yaml file in the "flows" directory of fsys.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, Dir)
	if err != nil {
		return fmt.Errorf("failed to read flows directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		name := path.Join(Dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read flow file %s: %w", name, err)
		}
		if err := l.load(name, data); err != nil {
			return err
		}
	}

	return nil
}

// LoadFile loads a single flow file from disk.
func (l *Loader) LoadFile(filename string) (*Flow, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file %s: %w", filename, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flow file %s: %w", filename, err)
	}
	l.registry.Register(f)
	return f, nil
}

func (l *Loader) load(name string, data []byte) error {
	f, err := Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse flow file %s: %w", name, err)
	}
	l.registry.Register(f)
	return nil
}

// Parse decodes and validates one flow document.
func Parse(data []byte) (*Flow, error) {
	var yf yamlFlow
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, err
	}

	f := convertYAMLFlow(&yf)
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// convertYAMLFlow converts a YAML flow to a domain Flow. ui and navigate
// default to true.
func convertYAMLFlow(yf *yamlFlow) *Flow {
	f := &Flow{
		Name:        yf.Name,
		Description: yf.Description,
		Tags:        yf.Tags,
		UI:          yf.UI == nil || *yf.UI,
		Navigate:    yf.Navigate == nil || *yf.Navigate,
		Vars:        yf.Vars,
		Steps:       make([]Step, len(yf.Steps)),
	}

	for i, ys := range yf.Steps {
		f.Steps[i] = Step{
			Action:    ActionType(ys.Action),
			Target:    ys.Target,
			URL:       ys.URL,
			Text:      ys.Text,
			Submit:    ys.Submit,
			SaveAs:    ys.SaveAs,
			Count:     ys.Count,
			Duration:  time.Duration(ys.Duration),
			Attribute: ys.Attribute,
			Property:  ys.Property,
			Wait:      ys.Wait,
			Equals:    ys.Equals,
			Contains:  ys.Contains,
			Expect:    ys.Expect,
		}
		if ys.Option != nil {
			f.Steps[i].Option = &Selection{
				Text:      ys.Option.Text,
				Partial:   ys.Option.Partial,
				Index:     ys.Option.Index,
				Random:    ys.Option.Random,
				OtherThan: ys.Option.OtherThan,
			}
		}
	}

	return f
}
