package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "hydrotsdb.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysSetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hydrotsdb.toml")
	contents := "catalog_file = \"custom.sqlite\"\nlog_level = \"debug\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.sqlite", cfg.CatalogFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "data", cfg.DataDir, "fields absent from the file should keep their default")
}
