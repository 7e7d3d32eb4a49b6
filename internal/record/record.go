// Package record implements the fixed-width binary codec shared by the
// data file and the log file: pack/unpack of a single (timestamp, value,
// meta) triple.
//
// Generalized from a family of per-type value codecs (one for int64
// columns, one for float64 columns): where those encoded a homogeneous
// slice of one scalar type, Width/Encode/Decode here are specialized to
// the one heterogeneous triple this database actually stores on disk.
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/amacd31/hydrotsdb/internal/errs"
)

// Width is the fixed size in bytes of a single on-disk record.
const Width = 20

// MissingValue is the sentinel float64 written for a missing observation.
const MissingValue = -9999.0

// MissingMeta is the sentinel meta flag written for a missing observation.
const MissingMeta int32 = 9999

// DefaultMeta is the flag used for ordinary, observed values.
const DefaultMeta int32 = 0

// Record is one fixed-width (timestamp, value, meta) triple.
type Record struct {
	Timestamp int64
	Value     float64
	Meta      int32
}

// New builds a Record for value at timestamp, translating NaN to the
// on-disk missing sentinel.
func New(timestamp int64, value float64) Record {
	if math.IsNaN(value) {
		return Missing(timestamp)
	}
	return Record{Timestamp: timestamp, Value: value, Meta: DefaultMeta}
}

// NewWithMeta builds a Record carrying a caller-supplied meta flag, still
// normalising NaN to the missing sentinel.
func NewWithMeta(timestamp int64, value float64, meta int32) Record {
	if math.IsNaN(value) {
		return Missing(timestamp)
	}
	return Record{Timestamp: timestamp, Value: value, Meta: meta}
}

// Missing builds the sentinel missing record for timestamp.
func Missing(timestamp int64) Record {
	return Record{Timestamp: timestamp, Value: MissingValue, Meta: MissingMeta}
}

// IsMissing reports whether r's meta flag marks it as missing.
func (r Record) IsMissing() bool {
	return r.Meta == MissingMeta
}

// Float returns r's value, translating the missing sentinel back to NaN
// regardless of what the value field happens to hold on disk.
func (r Record) Float() float64 {
	if r.IsMissing() {
		return math.NaN()
	}
	return r.Value
}

// Encode appends r's 20-byte little-endian wire form to w.
func Encode(w io.Writer, r Record) error {
	return binary.Write(w, binary.LittleEndian, r)
}

// EncodeBytes returns r's 20-byte little-endian wire form.
func EncodeBytes(r Record) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(Width)
	_ = Encode(buf, r)
	return buf.Bytes()
}

// Decode reads exactly one record from r. It returns io.EOF when r is
// exhausted cleanly between records, and errs.ErrCorruptRecord when a read
// yields a partial record (fewer than Width bytes, but more than zero).
func Decode(r io.Reader) (Record, error) {
	buf := make([]byte, Width)
	n, err := io.ReadFull(r, buf)
	if err == io.EOF && n == 0 {
		return Record{}, io.EOF
	}
	if err == io.ErrUnexpectedEOF || (err == nil && n != Width) {
		return Record{}, fmt.Errorf("%w: read %d of %d bytes", errs.ErrCorruptRecord, n, Width)
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", errs.ErrCorruptRecord, err)
	}
	return rec, nil
}

// ValidSize reports whether size is a whole multiple of Width, i.e. the
// file ends on a record boundary.
func ValidSize(size int64) bool {
	return size%int64(Width) == 0
}

// TruncateToBoundary returns the largest size <= size that is a multiple
// of Width: the record boundary a file left with a torn trailing record
// could be truncated back to. Nothing in this repository truncates such a
// file; readers report it as ErrCorruptRecord instead.
func TruncateToBoundary(size int64) int64 {
	return size - (size % int64(Width))
}
