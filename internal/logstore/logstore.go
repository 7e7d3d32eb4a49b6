// Package logstore implements the append-only per-instance revision log:
// every change set a write produces is appended here, stamped with the
// wall-clock time the write committed, so a series can be reconstructed as
// it stood at any past moment.
package logstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/amacd31/hydrotsdb/internal/changeset"
	"github.com/amacd31/hydrotsdb/internal/errs"
	"github.com/amacd31/hydrotsdb/internal/fslock"
	"github.com/amacd31/hydrotsdb/internal/record"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logger zerolog.Logger = log.With().Str("component", "logstore").Logger()

// SetLogger overrides the package logger.
func SetLogger(l zerolog.Logger) { logger = l }

// Width is the fixed size in bytes of one on-disk log entry: an int64
// timestamp, a float64 value, an int32 meta flag, and an int64
// replacement_time.
const Width = 28

// Entry is one on-disk log row.
type Entry struct {
	Timestamp       int64
	Value           float64
	Meta            int32
	ReplacementTime int64
}

// Float returns e's value, translating the missing sentinel back to NaN.
func (e Entry) Float() float64 {
	if e.Meta == record.MissingMeta {
		return math.NaN()
	}
	return e.Value
}

func entryFrom(r record.Record, replacementTime int64) Entry {
	return Entry{Timestamp: r.Timestamp, Value: r.Value, Meta: r.Meta, ReplacementTime: replacementTime}
}

func encode(w io.Writer, e Entry) error {
	return binary.Write(w, binary.LittleEndian, e)
}

func decode(r io.Reader) (Entry, error) {
	buf := make([]byte, Width)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF && n == 0 {
		return Entry{}, io.EOF
	}
	if err == io.ErrUnexpectedEOF || (err == nil && n != Width) {
		return Entry{}, fmt.Errorf("%w: read %d of %d bytes", errs.ErrCorruptRecord, n, Width)
	}
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", errs.ErrCorruptRecord, err)
	}
	return e, nil
}

// Append writes cs's Updated entries followed by its Created entries, all
// stamped with replacementTime. Updated is written first so that, within
// the same replacement_time, the Created entry for a given timestamp - the
// value the write actually produced - is the one that wins ties during
// ReadAsOf's file-order tiebreak.
func Append(path string, cs changeset.ChangeSet, replacementTime int64) error {
	if cs.Empty() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logstore: mkdir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logstore: open %s: %w", path, err)
	}
	defer f.Close()

	if err := fslock.Exclusive(f); err != nil {
		return fmt.Errorf("logstore: lock %s: %w", path, err)
	}
	defer fslock.Release(f)

	for _, r := range cs.Updated {
		if err := encode(f, entryFrom(r, replacementTime)); err != nil {
			return fmt.Errorf("logstore: append %s: %w", path, err)
		}
	}
	for _, r := range cs.Created {
		if err := encode(f, entryFrom(r, replacementTime)); err != nil {
			return fmt.Errorf("logstore: append %s: %w", path, err)
		}
	}

	logger.Debug().Str("path", path).Int64("replacement_time", replacementTime).
		Int("updated", len(cs.Updated)).Int("created", len(cs.Created)).Msg("appended log entries")
	return nil
}

// ReadAll streams every entry in path, in file order. It returns an empty,
// nil-error slice if path does not exist.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logstore: open %s: %w", path, err)
	}
	defer f.Close()

	if err := fslock.Shared(f); err != nil {
		return nil, fmt.Errorf("logstore: lock %s: %w", path, err)
	}
	defer fslock.Release(f)

	var out []Entry
	for {
		e, err := decode(f)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ReadAsOf reconstructs the series as it stood at time t: among entries
// with replacement_time <= t, keep, per timestamp, the one with the
// largest replacement_time; ties are broken by file order (the later
// entry in the file wins). The result is sorted ascending by timestamp.
func ReadAsOf(path string, t int64) ([]Entry, error) {
	entries, err := ReadAll(path)
	if err != nil {
		return nil, err
	}

	best := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		if e.ReplacementTime > t {
			continue
		}
		cur, ok := best[e.Timestamp]
		if !ok || e.ReplacementTime >= cur.ReplacementTime {
			best[e.Timestamp] = e
		}
	}
	if len(best) == 0 {
		return nil, nil
	}

	out := make([]Entry, 0, len(best))
	for _, e := range best {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}
