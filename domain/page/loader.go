package page

import (
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

// Dir is the directory, relative to the loaded filesystem, holding page catalogs.
const Dir = "pages"

// yamlCatalog is the YAML structure for page catalogs. One file may
// describe several pages.
type yamlCatalog struct {
	Pages []yamlPage `yaml:"pages"`
}

type yamlPage struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Path        string            `yaml:"path"`
	Elements    map[string]string `yaml:"elements"`
}

// Loader handles loading page catalogs from a filesystem.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new page loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads every .yaml file in the "pages" directory of fsys.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, Dir)
	if err != nil {
		return fmt.Errorf("failed to read pages directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		if err := l.loadFile(fsys, path.Join(Dir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) loadFile(fsys fs.FS, name string) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("failed to read page file %s: %w", name, err)
	}

	pages, err := Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse page file %s: %w", name, err)
	}
	for _, p := range pages {
		l.registry.Register(p)
	}
	return nil
}

// Parse decodes and validates a page catalog document.
func Parse(data []byte) ([]*Page, error) {
	var cat yamlCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}

	pages := make([]*Page, 0, len(cat.Pages))
	for _, yp := range cat.Pages {
		p := &Page{
			Name:        yp.Name,
			Description: yp.Description,
			Path:        yp.Path,
			Elements:    yp.Elements,
		}
		if p.Elements == nil {
			p.Elements = make(map[string]string)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}
