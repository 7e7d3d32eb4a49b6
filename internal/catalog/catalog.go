// Package catalog defines the InstanceDirectory contract: the external
// relational store holding every registration (timeseries, measurand,
// source, attribute) and the mapping from those keys to the opaque
// 128-bit handle the storage engine uses as a filename stem. The storage
// engine never talks to a relational database directly; it only ever
// resolves "(keys) -> handle" through this interface.
package catalog

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/amacd31/hydrotsdb/internal/errs"
)

// Instance describes one registered timeseries instance and the handle
// the storage engine uses to name its two files.
type Instance struct {
	Handle          string
	TimeseriesID    string
	Frequency       string
	InitialMetadata string
	Measurand       string
	Source          string
	Attributes      map[string]string
}

// InstanceFilter narrows ListInstances; a zero-value field is unconstrained.
type InstanceFilter struct {
	TimeseriesID string
	Measurand    string
	Source       string
}

// InstanceDirectory is the external catalog collaborator: registrations
// plus the key -> handle lookup the storage engine depends on.
//
// Re-architected, per the design notes on catalog/storage coupling, as
// this abstract trait with two implementations: SQLiteDirectory for
// production and MemoryDirectory for tests.
type InstanceDirectory interface {
	RegisterTimeseries(id string) error
	RegisterMeasurand(name string) error
	RegisterSource(name string) error
	RegisterAttribute(name string) error
	BindAttributeValue(instanceHandle, attribute, value string) error

	CreateInstance(tsID, freq, initialMetadata, measurand, source string) (handle string, err error)
	Lookup(tsID, freq, measurand, source string) (handle string, err error)

	ListTimeseries() ([]string, error)
	ListMeasurands() ([]string, error)
	ListSources() ([]string, error)
	ListInstances(filter InstanceFilter) ([]Instance, error)

	SchemaVersion() (int, error)
	Close() error
}

// SchemaVersion is the catalog schema version this package writes and
// expects to read back; bump it, and add a migration path, whenever the
// table layout in sqlite.go changes incompatibly.
const SchemaVersion = 1

// NewHandle allocates a fresh, stable 128-bit handle rendered as a
// 32-character lowercase hex string, the on-disk filename stem for a
// newly created instance.
func NewHandle() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("catalog: generate handle: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

func wrapNotFound(what, key string) error {
	return fmt.Errorf("%w: %s %q", errs.ErrNotFound, what, key)
}

func wrapDuplicate(what, key string) error {
	return fmt.Errorf("%w: %s %q already registered", errs.ErrDuplicate, what, key)
}

func wrapMissingAttribute(what, key string) error {
	return fmt.Errorf("%w: %s %q is not registered", errs.ErrMissingAttribute, what, key)
}
