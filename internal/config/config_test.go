package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[project]
name = "webthing"
version = "0.3.0"

[build]
target = "wasm32-web"
opt = "-O2"

[dependencies]
requests = ">=2.0,<3"
left-pad = "*"
uvloop = ""
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0o644))
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := writeManifest(t, sample)
	cfg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "webthing", cfg.Project.Name)
	assert.Equal(t, "wasm32-web", cfg.Build.Target)
	assert.Equal(t, "-O2", cfg.Build.Opt)
	assert.True(t, Exists(dir))
}

func TestRequirementsSortedAndRendered(t *testing.T) {
	dir := writeManifest(t, sample)
	cfg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"left-pad", "requests>=2.0,<3", "uvloop"}, cfg.Requirements())
}

func TestLoadMissingFileIsError(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
	assert.False(t, Exists(t.TempDir()))
}
