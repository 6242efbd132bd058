package llm

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const textPlaceholder = "{{text}}"

//go:embed prompts.yaml
var promptsYAML []byte

// PromptCatalog holds rewrite prompt templates keyed by name.
type PromptCatalog struct {
	Version string            `yaml:"version"`
	Default string            `yaml:"default"`
	Prompts map[string]string `yaml:"prompts"`
}

// LoadPrompts parses the embedded prompt catalog.
func LoadPrompts() (*PromptCatalog, error) {
	return ParsePrompts(promptsYAML)
}

// ParsePrompts parses and validates a YAML prompt catalog.
func ParsePrompts(data []byte) (*PromptCatalog, error) {
	var catalog PromptCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if len(catalog.Prompts) == 0 {
		return nil, errors.New("prompt catalog is empty")
	}
	if _, ok := catalog.Prompts[catalog.Default]; !ok {
		return nil, fmt.Errorf("default prompt %q not defined", catalog.Default)
	}
	for name, tmpl := range catalog.Prompts {
		if !strings.Contains(tmpl, textPlaceholder) {
			return nil, fmt.Errorf("prompt %q is missing %s", name, textPlaceholder)
		}
	}
	return &catalog, nil
}

// Render fills the named template, falling back to the default template.
func (c *PromptCatalog) Render(name, text string) string {
	tmpl, ok := c.Prompts[name]
	if !ok {
		tmpl = c.Prompts[c.Default]
	}
	return strings.ReplaceAll(tmpl, textPlaceholder, text)
}
