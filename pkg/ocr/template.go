package ocr

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// DefaultTemplateName is the embedded template used when no path is configured.
const DefaultTemplateName = "typing_result_v1"

// Template is the set of field regions for one screenshot layout and resolution.
// A loaded template is never modified.
type Template struct {
	Name    string   `yaml:"name"`
	Width   int      `yaml:"width"`
	Height  int      `yaml:"height"`
	Regions []Region `yaml:"regions"`
}

// LoadTemplate reads a template from a YAML file. An empty path returns the
// embedded default.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return DefaultTemplate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return ParseTemplate(b)
}

// DefaultTemplate returns the embedded result-screen template.
func DefaultTemplate() (*Template, error) {
	b, err := templateFS.ReadFile("templates/" + DefaultTemplateName + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded template: %w", err)
	}
	return ParseTemplate(b)
}

// ParseTemplate decodes and checks a YAML template.
func ParseTemplate(b []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Template) validate() error {
	seen := map[Field]bool{}
	for _, r := range t.Regions {
		if !r.Field.Known() {
			return fmt.Errorf("template %s: unknown field %q", t.Name, r.Field)
		}
		if seen[r.Field] {
			return fmt.Errorf("template %s: duplicate region for %s", t.Name, r.Field)
		}
		if len(r.Polygon) != 4 {
			return fmt.Errorf("template %s: region %s needs 4 points, got %d", t.Name, r.Field, len(r.Polygon))
		}
		seen[r.Field] = true
	}
	for _, f := range RequiredFields {
		if !seen[f] {
			return fmt.Errorf("template %s: no region for required field %s", t.Name, f)
		}
	}
	return nil
}
