// Package tsdb is the top-level façade over the storage engine and
// catalog adapter: a DB ties a handle-keyed InstanceDirectory to the
// Instance Storage Engine, resolving every call's (timeseries, frequency,
// measurand, source) key to a handle before delegating.
package tsdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/amacd31/hydrotsdb/internal/calendar"
	"github.com/amacd31/hydrotsdb/internal/catalog"
	"github.com/amacd31/hydrotsdb/internal/config"
	"github.com/amacd31/hydrotsdb/internal/errs"
	"github.com/amacd31/hydrotsdb/internal/instance"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logger zerolog.Logger = log.With().Str("component", "tsdb").Logger()

// SetLogger overrides the package logger.
func SetLogger(l zerolog.Logger) { logger = l }

// configFile is the optional settings file read from a database root.
const configFile = "hydrotsdb.toml"

// DB is an open database root: a catalog directory plus the storage
// engine rooted at its data directory.
type DB struct {
	root   string
	cfg    config.Config
	dir    catalog.InstanceDirectory
	engine *instance.Engine
}

// CreateDB allocates a new database root at path: the directory itself
// (created if absent), its data subdirectory, and an empty catalog. It
// fails with errs.ErrDuplicate if path already holds a catalog file.
func CreateDB(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("tsdb: create db root %s: %w", path, err)
	}

	cfg, err := config.Load(filepath.Join(path, configFile))
	if err != nil {
		return fmt.Errorf("tsdb: load config: %w", err)
	}

	catalogPath := filepath.Join(path, cfg.CatalogFile)
	if _, err := os.Stat(catalogPath); err == nil {
		return fmt.Errorf("%w: database already exists at %s", errs.ErrDuplicate, path)
	}

	if err := os.MkdirAll(filepath.Join(path, cfg.DataDir), 0o755); err != nil {
		return fmt.Errorf("tsdb: create data dir: %w", err)
	}

	dir, err := catalog.OpenSQLiteDirectory(catalogPath)
	if err != nil {
		return fmt.Errorf("tsdb: create catalog: %w", err)
	}
	return dir.Close()
}

// OpenDB opens an existing database root created by CreateDB.
func OpenDB(path string) (*DB, error) {
	cfg, err := config.Load(filepath.Join(path, configFile))
	if err != nil {
		return nil, fmt.Errorf("tsdb: load config: %w", err)
	}

	catalogPath := filepath.Join(path, cfg.CatalogFile)
	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no database at %s", errs.ErrNotFound, path)
	}

	dir, err := catalog.OpenSQLiteDirectory(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("tsdb: open catalog: %w", err)
	}

	dataDir := filepath.Join(path, cfg.DataDir)
	engine := instance.New(dataDir, func() int64 { return time.Now().UTC().Unix() })

	logger.Debug().Str("root", path).Msg("database opened")
	return &DB{root: path, cfg: cfg, dir: dir, engine: engine}, nil
}

// Close releases the catalog's underlying resources.
func (db *DB) Close() error {
	return db.dir.Close()
}

// RegisterTimeseries registers a new timeseries identifier in the catalog.
func (db *DB) RegisterTimeseries(id string) error {
	return db.dir.RegisterTimeseries(id)
}

// RegisterMeasurand registers a new measurand name in the catalog.
func (db *DB) RegisterMeasurand(name string) error {
	return db.dir.RegisterMeasurand(name)
}

// RegisterSource registers a new data source name in the catalog.
func (db *DB) RegisterSource(name string) error {
	return db.dir.RegisterSource(name)
}

// RegisterAttribute registers a new attribute name in the catalog.
func (db *DB) RegisterAttribute(name string) error {
	return db.dir.RegisterAttribute(name)
}

// BindAttributeValue attaches attribute=value to an existing instance.
func (db *DB) BindAttributeValue(handle, attribute, value string) error {
	return db.dir.BindAttributeValue(handle, attribute, value)
}

// CreateInstance registers a new instance under (tsID, freq, measurand,
// source) and returns the handle allocated for it.
func (db *DB) CreateInstance(tsID, freqLabel, initialMetadata, measurand, source string) (string, error) {
	if _, err := calendar.Parse(freqLabel); err != nil {
		return "", err
	}
	return db.dir.CreateInstance(tsID, freqLabel, initialMetadata, measurand, source)
}

// WriteResult reports how many records a Write call created or updated.
type WriteResult = instance.WriteResult

// Point is one (timestamp, value) input pair, NaN meaning missing.
type Point = calendar.Point

// Write resolves (tsID, freq, measurand, source) to its instance handle
// and applies points to it.
func (db *DB) Write(tsID, freqLabel, measurand, source string, points []Point) (WriteResult, error) {
	freq, err := calendar.Parse(freqLabel)
	if err != nil {
		return WriteResult{}, err
	}
	handle, err := db.dir.Lookup(tsID, freqLabel, measurand, source)
	if err != nil {
		return WriteResult{}, err
	}
	return db.engine.Write(handle, freq, points)
}

// Read returns the current series for (tsID, freq, measurand, source).
func (db *DB) Read(tsID, freqLabel, measurand, source string) ([]Point, error) {
	handle, err := db.dir.Lookup(tsID, freqLabel, measurand, source)
	if err != nil {
		return nil, err
	}
	return db.engine.Read(handle)
}

// ReadAsOf returns the series for (tsID, freq, measurand, source) as it
// stood at unix time t.
func (db *DB) ReadAsOf(tsID, freqLabel, measurand, source string, t int64) ([]Point, error) {
	handle, err := db.dir.Lookup(tsID, freqLabel, measurand, source)
	if err != nil {
		return nil, err
	}
	return db.engine.ReadAsOf(handle, t)
}

// ListTimeseries returns every registered timeseries identifier.
func (db *DB) ListTimeseries() ([]string, error) { return db.dir.ListTimeseries() }

// ListMeasurands returns every registered measurand name.
func (db *DB) ListMeasurands() ([]string, error) { return db.dir.ListMeasurands() }

// ListSources returns every registered source name.
func (db *DB) ListSources() ([]string, error) { return db.dir.ListSources() }

// Instance describes one registered timeseries instance.
type Instance = catalog.Instance

// InstanceFilter narrows ListInstances; a zero-value field is unconstrained.
type InstanceFilter = catalog.InstanceFilter

// ListInstances returns every registered instance matching filter.
func (db *DB) ListInstances(filter InstanceFilter) ([]Instance, error) {
	return db.dir.ListInstances(filter)
}

// SchemaVersion reports the catalog schema version in use.
func (db *DB) SchemaVersion() (int, error) { return db.dir.SchemaVersion() }
