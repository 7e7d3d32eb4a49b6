// Package errs defines the sentinel error kinds shared across the storage
// engine and catalog adapter, so callers can use errors.Is against a stable
// set of values regardless of which package raised them.
package errs

import "errors"

var (
	// ErrNotFound indicates a database, catalog entity, or instance is missing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates registration of an already-present key.
	ErrDuplicate = errors.New("duplicate")

	// ErrMissingAttribute indicates a reference to an unregistered
	// measurand, source, or attribute.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrCalendar indicates input timestamps are misaligned, duplicated,
	// or unordered once sorted.
	ErrCalendar = errors.New("calendar error")

	// ErrData indicates an on-disk record failed a validity check.
	ErrData = errors.New("data error")

	// ErrCorruptRecord indicates a partial-record tail was found.
	ErrCorruptRecord = errors.New("corrupt record")

	// ErrNotImplemented indicates a write arrangement unsupported by the
	// current engine, or tick arithmetic attempted on an irregular
	// frequency.
	ErrNotImplemented = errors.New("not implemented")
)
