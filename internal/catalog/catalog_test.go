// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	cs := List()

	assert.Len(t, cs, 10)

	seen := make(map[string]bool)
	for _, c := range cs {
		assert.NotEmpty(t, c.ID)
		assert.False(t, seen[c.ID], "duplicate concept id %q", c.ID)
		seen[c.ID] = true

		assert.Contains(t, c.PromptTemplate, "{product}", "concept %q", c.ID)
		assert.Equal(t, NegativePrompt, c.NegativePrompt)
		assert.Equal(t, Seed("", c.ID, 0), c.Seed)
	}

	// Declaration order is the manifest order; the hero shot leads.
	assert.Equal(t, "hero", cs[0].ID)
	assert.Equal(t, "mockup", cs[len(cs)-1].ID)
}

func TestList_ReturnsCopy(t *testing.T) {
	a := List()
	a[0].PromptTemplate = "mutated"
	b := List()
	assert.NotEqual(t, "mutated", b[0].PromptTemplate)
}

func TestRender(t *testing.T) {
	cs := List()
	prompt := Render(cs[0], "Matte Black Travel Mug 12oz", "include brand colors, no extra logos")

	assert.Contains(t, prompt, "Matte Black Travel Mug 12oz")
	assert.Contains(t, prompt, "include brand colors")
	assert.NotContains(t, prompt, "{product}")
	assert.NotContains(t, prompt, "{brand_constraints}")
}

func TestSeed_Deterministic(t *testing.T) {
	a := Seed("Travel Mug", "hero", 0)
	b := Seed("Travel Mug", "hero", 0)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, int64(0))

	// Any input change must move the seed.
	assert.NotEqual(t, a, Seed("Travel Mug", "hero", 1))
	assert.NotEqual(t, a, Seed("Travel Mug", "flatlay", 0))
	assert.NotEqual(t, a, Seed("Other Product", "hero", 0))
}

func TestCatalogFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concepts.yaml")
	require.NoError(t, Write(path, List()))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 10)
	assert.Equal(t, List(), loaded)
}

func TestCatalogFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty catalog",
			yaml:    "concepts: []\n",
			wantErr: "no concepts",
		},
		{
			name: "missing id",
			yaml: "concepts:\n  - prompt_template: \"{product}\"\n",
			wantErr: "missing id",
		},
		{
			name: "duplicate id",
			yaml: "concepts:\n  - id: a\n    prompt_template: \"{product}\"\n  - id: a\n    prompt_template: \"{product}\"\n",
			wantErr: "duplicate id",
		},
		{
			name: "missing template",
			yaml: "concepts:\n  - id: a\n",
			wantErr: "missing prompt_template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, writeTempFile(path, tt.yaml))
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr),
				"error %q should mention %q", err, tt.wantErr)
		})
	}
}

func TestCatalogFile_DefaultsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "min.yaml")
	require.NoError(t, writeTempFile(path, "concepts:\n  - id: studio\n    prompt_template: \"{product} on glass\"\n"))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "studio", loaded[0].Name)
	assert.Equal(t, NegativePrompt, loaded[0].NegativePrompt)
	assert.Equal(t, Seed("", "studio", 0), loaded[0].Seed)
}

func writeTempFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
