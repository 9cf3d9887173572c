// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyStableHorde, "  hk_abc123  \n")
				writeFile(t, dir, KeyHuggingFace, "hf_xyz789\n")
				return dir
			},
			want: map[string]string{
				KeyStableHorde: "hk_abc123",
				KeyHuggingFace: "hf_xyz789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips dotfiles and empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitignore", "*")
				writeFile(t, dir, "empty-key", "   \n")
				writeFile(t, dir, KeyHuggingFace, "hf_tok")
				return dir
			},
			want: map[string]string{KeyHuggingFace: "hf_tok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	loaded := map[string]string{KeyStableHorde: "from-file"}

	t.Run("explicit value wins", func(t *testing.T) {
		assert.Equal(t, "from-flag", Resolve(loaded, KeyStableHorde, "from-flag", "CE_TEST_KEY"))
	})

	t.Run("falls back to loaded secret", func(t *testing.T) {
		assert.Equal(t, "from-file", Resolve(loaded, KeyStableHorde, "", "CE_TEST_KEY"))
	})

	t.Run("falls back to environment", func(t *testing.T) {
		t.Setenv("CE_TEST_KEY", "from-env")
		assert.Equal(t, "from-env", Resolve(loaded, "missing-key", "", "CE_TEST_KEY"))
	})
}
