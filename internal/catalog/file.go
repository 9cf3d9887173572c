// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/creative-engine/pkg/types"
)

// File is the on-disk representation of a concept catalog. Brand teams can
// save the built-in catalog, edit the prompts, and feed the file back with
// --concepts without touching the binary.
type File struct {
	Concepts []types.Concept `yaml:"concepts"`
}

// Write saves a catalog to a YAML file.
func Write(path string, cs []types.Concept) error {
	data, err := yaml.Marshal(&File{Concepts: cs})
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a catalog override from a YAML file and validates it: IDs
// must be unique and non-empty, and every concept needs a prompt template.
// Concepts without an explicit negative prompt inherit the shared one;
// seeds are always rederived so the file cannot break reproducibility.
func Load(path string) ([]types.Concept, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	if len(f.Concepts) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no concepts", path)
	}

	seen := make(map[string]bool, len(f.Concepts))
	for i := range f.Concepts {
		c := &f.Concepts[i]
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: missing id", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
		if strings.TrimSpace(c.PromptTemplate) == "" {
			return nil, fmt.Errorf("catalog entry %q: missing prompt_template", c.ID)
		}
		if c.Name == "" {
			c.Name = c.ID
		}
		if c.NegativePrompt == "" {
			c.NegativePrompt = NegativePrompt
		}
		c.Seed = Seed("", c.ID, 0)
	}

	return f.Concepts, nil
}
