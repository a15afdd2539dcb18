package iofs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gnames/gncube/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEnsureDirs(t *testing.T) {
	tmpDir := t.TempDir()

	// repeated calls succeed
	for range 3 {
		require.NoError(t, EnsureDirs(tmpDir))
	}

	dirs := []string{
		filepath.Join(tmpDir, ".config", "gncube"),
		filepath.Join(tmpDir, ".cache", "gncube"),
		filepath.Join(tmpDir, ".local", "share", "gncube", "logs"),
	}
	for _, d := range dirs {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir(), d)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

func TestEnsureDirsError(t *testing.T) {
	tmpDir := t.TempDir()
	// a file where .config directory should be
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".config"), nil, 0644))

	err := EnsureDirs(tmpDir)
	require.Error(t, err)
}

func TestEnsureConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, EnsureDirs(tmpDir))
	require.NoError(t, EnsureConfigFile(tmpDir))

	path := filepath.Join(tmpDir, ".config", "gncube", "config.yaml")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ConfigYAML, string(content))

	// existing file is kept
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644))
	require.NoError(t, EnsureConfigFile(tmpDir))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log:\n  level: debug\n", string(content))
}

func TestEnsureConfigFileError(t *testing.T) {
	// config directory does not exist
	err := EnsureConfigFile(filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
}

// TestConfigYAMLDefaults keeps the embedded file in sync with config.New.
func TestConfigYAMLDefaults(t *testing.T) {
	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(ConfigYAML), &cfg))

	def := config.New()
	assert.Equal(t, def.Store.Backend, cfg.Store.Backend)
	assert.Equal(t, def.Store.BatchSize, cfg.Store.BatchSize)
	assert.Equal(t, def.Database, cfg.Database)
	assert.Equal(t, def.Grid, cfg.Grid)
	assert.Equal(t, def.Filter.Issues, cfg.Filter.Issues)
	assert.Equal(t, def.Filter.OccurrenceStatuses, cfg.Filter.OccurrenceStatuses)
	assert.Equal(t, def.Taxonomy, cfg.Taxonomy)
	assert.Equal(t, def.Export, cfg.Export)
	assert.Equal(t, def.Log, cfg.Log)
}
