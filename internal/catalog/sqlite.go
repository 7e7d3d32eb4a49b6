package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// schema mirrors a small relational catalog: timeseries, measurand, and
// source are independent registries; timeseries_instance binds one of
// each (plus a frequency) to an allocated handle; attribute and
// attribute_value let callers attach arbitrary extra key/value pairs to
// an instance without widening timeseries_instance itself.
const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS timeseries (
	id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS measurand (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS source (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS attribute (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS timeseries_instance (
	handle TEXT PRIMARY KEY,
	timeseries_id TEXT NOT NULL REFERENCES timeseries(id),
	frequency TEXT NOT NULL,
	initial_metadata TEXT NOT NULL DEFAULT '',
	measurand TEXT NOT NULL REFERENCES measurand(name),
	source TEXT NOT NULL REFERENCES source(name),
	UNIQUE(timeseries_id, frequency, measurand, source)
);

CREATE TABLE IF NOT EXISTS attribute_value (
	handle TEXT NOT NULL REFERENCES timeseries_instance(handle),
	attribute TEXT NOT NULL REFERENCES attribute(name),
	value TEXT NOT NULL,
	PRIMARY KEY (handle, attribute)
);
`

// SQLiteDirectory is the production InstanceDirectory, backed by a single
// SQLite database file under the database root.
type SQLiteDirectory struct {
	db *sqlx.DB
}

// OpenSQLiteDirectory opens (creating if absent) the catalog database at
// path, applies pragmas tuned for a single-writer workload, and ensures
// the schema and its version row exist.
func OpenSQLiteDirectory(path string) (*SQLiteDirectory, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: create schema: %w", err)
	}

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM schema_version"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: read schema_version: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: seed schema_version: %w", err)
		}
	}

	return &SQLiteDirectory{db: db}, nil
}

func (d *SQLiteDirectory) Close() error { return d.db.Close() }

func (d *SQLiteDirectory) register(table, name string) error {
	q, args, err := sq.Insert(table).Columns("name").Values(name).ToSql()
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(q, args...); err != nil {
		if isUniqueViolation(err) {
			return wrapDuplicate(table, name)
		}
		return fmt.Errorf("catalog: register %s %q: %w", table, name, err)
	}
	return nil
}

func (d *SQLiteDirectory) RegisterTimeseries(id string) error {
	q, args, err := sq.Insert("timeseries").Columns("id").Values(id).ToSql()
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(q, args...); err != nil {
		if isUniqueViolation(err) {
			return wrapDuplicate("timeseries", id)
		}
		return fmt.Errorf("catalog: register timeseries %q: %w", id, err)
	}
	return nil
}

func (d *SQLiteDirectory) RegisterMeasurand(name string) error { return d.register("measurand", name) }
func (d *SQLiteDirectory) RegisterSource(name string) error    { return d.register("source", name) }
func (d *SQLiteDirectory) RegisterAttribute(name string) error { return d.register("attribute", name) }

func (d *SQLiteDirectory) BindAttributeValue(handle, attribute, value string) error {
	q, args, err := sq.Insert("attribute_value").
		Columns("handle", "attribute", "value").
		Values(handle, attribute, value).
		Suffix("ON CONFLICT(handle, attribute) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(q, args...); err != nil {
		if isForeignKeyViolation(err) {
			return wrapMissingAttribute("attribute or instance", attribute)
		}
		return fmt.Errorf("catalog: bind attribute value: %w", err)
	}
	return nil
}

func (d *SQLiteDirectory) CreateInstance(tsID, freq, initialMetadata, measurand, source string) (string, error) {
	handle, err := NewHandle()
	if err != nil {
		return "", err
	}

	q, args, err := sq.Insert("timeseries_instance").
		Columns("handle", "timeseries_id", "frequency", "initial_metadata", "measurand", "source").
		Values(handle, tsID, freq, initialMetadata, measurand, source).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := d.db.Exec(q, args...); err != nil {
		if isUniqueViolation(err) {
			return "", wrapDuplicate("instance", tsID+"/"+freq+"/"+measurand+"/"+source)
		}
		if isForeignKeyViolation(err) {
			return "", wrapMissingAttribute("timeseries, measurand, or source", tsID+"/"+measurand+"/"+source)
		}
		return "", fmt.Errorf("catalog: create instance: %w", err)
	}
	return handle, nil
}

func (d *SQLiteDirectory) Lookup(tsID, freq, measurand, source string) (string, error) {
	q, args, err := sq.Select("handle").From("timeseries_instance").
		Where(sq.Eq{"timeseries_id": tsID, "frequency": freq, "measurand": measurand, "source": source}).
		ToSql()
	if err != nil {
		return "", err
	}
	var handle string
	if err := d.db.Get(&handle, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return "", wrapNotFound("instance", tsID+"/"+freq+"/"+measurand+"/"+source)
		}
		return "", fmt.Errorf("catalog: lookup instance: %w", err)
	}
	return handle, nil
}

func (d *SQLiteDirectory) ListTimeseries() ([]string, error) {
	return d.listNames("timeseries", "id")
}

func (d *SQLiteDirectory) ListMeasurands() ([]string, error) {
	return d.listNames("measurand", "name")
}

func (d *SQLiteDirectory) ListSources() ([]string, error) {
	return d.listNames("source", "name")
}

func (d *SQLiteDirectory) listNames(table, column string) ([]string, error) {
	q, args, err := sq.Select(column).From(table).OrderBy(column).ToSql()
	if err != nil {
		return nil, err
	}
	var out []string
	if err := d.db.Select(&out, q, args...); err != nil {
		return nil, fmt.Errorf("catalog: list %s: %w", table, err)
	}
	return out, nil
}

func (d *SQLiteDirectory) ListInstances(filter InstanceFilter) ([]Instance, error) {
	query := sq.Select("handle", "timeseries_id", "frequency", "initial_metadata", "measurand", "source").
		From("timeseries_instance")
	if filter.TimeseriesID != "" {
		query = query.Where(sq.Eq{"timeseries_id": filter.TimeseriesID})
	}
	if filter.Measurand != "" {
		query = query.Where(sq.Eq{"measurand": filter.Measurand})
	}
	if filter.Source != "" {
		query = query.Where(sq.Eq{"source": filter.Source})
	}
	q, args, err := query.OrderBy("timeseries_id", "frequency").ToSql()
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Handle          string `db:"handle"`
		TimeseriesID    string `db:"timeseries_id"`
		Frequency       string `db:"frequency"`
		InitialMetadata string `db:"initial_metadata"`
		Measurand       string `db:"measurand"`
		Source          string `db:"source"`
	}
	if err := d.db.Select(&rows, q, args...); err != nil {
		return nil, fmt.Errorf("catalog: list instances: %w", err)
	}

	out := make([]Instance, len(rows))
	for i, r := range rows {
		attrs, err := d.attributeValues(r.Handle)
		if err != nil {
			return nil, err
		}
		out[i] = Instance{
			Handle:          r.Handle,
			TimeseriesID:    r.TimeseriesID,
			Frequency:       r.Frequency,
			InitialMetadata: r.InitialMetadata,
			Measurand:       r.Measurand,
			Source:          r.Source,
			Attributes:      attrs,
		}
	}
	return out, nil
}

func (d *SQLiteDirectory) attributeValues(handle string) (map[string]string, error) {
	q, args, err := sq.Select("attribute", "value").From("attribute_value").
		Where(sq.Eq{"handle": handle}).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := d.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: attribute values for %s: %w", handle, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var attr, value string
		if err := rows.Scan(&attr, &value); err != nil {
			return nil, err
		}
		out[attr] = value
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, rows.Err()
}

func (d *SQLiteDirectory) SchemaVersion() (int, error) {
	var version int
	if err := d.db.Get(&version, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		return 0, fmt.Errorf("catalog: read schema_version: %w", err)
	}
	return version, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
