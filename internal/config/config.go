// Package config loads the optional hydrotsdb.toml settings file found at
// a database root, falling back to built-in defaults when it is absent.
package config

import (
	"os"

	"github.com/midbel/toml"
)

// Config holds the settings that govern how a database root behaves.
type Config struct {
	// CatalogFile names the SQLite catalog file relative to the database
	// root.
	CatalogFile string `toml:"catalog_file"`

	// DataDir names the directory, relative to the database root, that
	// holds the <handle>.dat and <handle>.log files.
	DataDir string `toml:"data_dir"`

	// LogLevel is a zerolog level name ("debug", "info", "warn", "error").
	LogLevel string `toml:"log_level"`
}

// Default returns the configuration used when no hydrotsdb.toml is
// present at the database root.
func Default() Config {
	return Config{
		CatalogFile: "tsdb.sqlite",
		DataDir:     "data",
		LogLevel:    "info",
	}
}

// Load reads hydrotsdb.toml from path, overlaying any set fields onto the
// defaults. A missing file is not an error: Default() is returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
