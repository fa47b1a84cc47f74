package persona

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var defaultSeedsYAML []byte

type seedFile struct {
	Personas []Persona `yaml:"personas"`
}

// DefaultSeeds returns the built-in persona set.
func DefaultSeeds() ([]Persona, error) {
	return ParseSeeds(defaultSeedsYAML)
}

// LoadSeeds reads a seed file, or the built-in set when path is empty.
func LoadSeeds(path string) ([]Persona, error) {
	if path == "" {
		return DefaultSeeds()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeeds(data)
}

// ParseSeeds decodes and normalizes a YAML persona list.
func ParseSeeds(data []byte) ([]Persona, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}
	seen := make(map[string]bool, len(f.Personas))
	out := make([]Persona, 0, len(f.Personas))
	for _, p := range f.Personas {
		p.Name = Normalize(p.Name)
		if !ValidName(p.Name) {
			return nil, fmt.Errorf("invalid persona name %q in seeds", p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate persona %q in seeds", p.Name)
		}
		if p.Prompt == "" {
			return nil, fmt.Errorf("persona %q has empty prompt", p.Name)
		}
		if p.DisplayName == "" {
			p.DisplayName = DisplayName(p.Name)
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out, nil
}

// basePersona is the fallback record ensured on every load.
func basePersona() Persona {
	if seeds, err := DefaultSeeds(); err == nil {
		for _, p := range seeds {
			if p.Name == BaseName {
				return p
			}
		}
	}
	return Persona{
		Name:        BaseName,
		DisplayName: DisplayName(BaseName),
		Prompt:      "You are a Business Domain Expert capable of assuming various professional roles.",
		Builtin:     true,
	}
}
