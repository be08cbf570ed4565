// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/genegap/internal/logging"
	"github.com/pdiddy/genegap/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, NCBIAPIKey, "  abc123  \n")
				writeFile(t, dir, NCBIEmail, "lab@example.org\n")
				return dir
			},
			want: Set{NCBIAPIKey: "abc123", NCBIEmail: "lab@example.org"},
		},
		{
			name: "skips hidden files, directories and blank values",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, "empty", "   \n")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				writeFile(t, dir, NCBIEmail, "a@b.c")
				return dir
			},
			want: Set{NCBIEmail: "a@b.c"},
		},
		{
			name: "missing directory is empty",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent")
			},
			want: Set{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), logging.Discard())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can read mode 0000 files")
	}
	dir := t.TempDir()
	writeFile(t, dir, NCBIEmail, "lab@example.org")

	badPath := filepath.Join(dir, NCBIAPIKey)
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "lab@example.org", got[NCBIEmail])
	assert.NotContains(t, got, NCBIAPIKey)
}

func TestApplyLiterature(t *testing.T) {
	s := Set{NCBIAPIKey: "from-file", NCBIEmail: "file@example.org"}

	cfg := types.LiteratureConfig{Email: "config@example.org"}
	s.ApplyLiterature(&cfg)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, "config@example.org", cfg.Email, "configured value wins")
}

func TestKeys(t *testing.T) {
	s := Set{NCBIEmail: "x", NCBIAPIKey: "y"}
	assert.Equal(t, []string{NCBIAPIKey, NCBIEmail}, s.Keys())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
