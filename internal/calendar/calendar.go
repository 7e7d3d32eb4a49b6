// Package calendar maps a frequency label to a discrete tick sequence and
// normalises arbitrary (timestamp, value) input against it.
//
// Frequencies are a closed sum of variants rather than a binding to a
// third-party datetime/calendar library: every variant implements tick
// arithmetic identically (a fixed-seconds stride, or month-aware stepping
// for the two month-anchored variants), and Irregular is explicitly
// forbidden from tick arithmetic.
package calendar

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/amacd31/hydrotsdb/internal/errs"
	"github.com/amacd31/hydrotsdb/internal/record"
)

// Kind identifies one of the supported frequency variants.
type Kind int

const (
	Daily Kind = iota
	Hourly
	MinuteN
	MonthEnd
	MonthStart
	Irregular
)

// Frequency is a closed sum of the supported calendar frequencies.
type Frequency struct {
	kind Kind
	n    int // minutes, only meaningful when kind == MinuteN
}

func NewDaily() Frequency     { return Frequency{kind: Daily} }
func NewHourly() Frequency    { return Frequency{kind: Hourly} }
func NewMonthEnd() Frequency  { return Frequency{kind: MonthEnd} }
func NewMonthStart() Frequency { return Frequency{kind: MonthStart} }
func NewIrregular() Frequency { return Frequency{kind: Irregular} }

// NewMinuteN builds an N-minute frequency (N >= 1), covering both the
// generic "NT"/"Nmin" form and the "30min" shorthand.
func NewMinuteN(n int) Frequency {
	return Frequency{kind: MinuteN, n: n}
}

var minutePattern = regexp.MustCompile(`^(\d+)(min|T)$`)

// Parse resolves a frequency label as used in catalog registrations and
// the public API: "D", "H", "M" (month-end), "MS" (month-start), "IRR",
// "30min", or a generic "<N>min"/"<N>T" for N >= 1.
func Parse(label string) (Frequency, error) {
	switch label {
	case "D":
		return NewDaily(), nil
	case "H":
		return NewHourly(), nil
	case "M":
		return NewMonthEnd(), nil
	case "MS":
		return NewMonthStart(), nil
	case "IRR":
		return NewIrregular(), nil
	}

	if m := minutePattern.FindStringSubmatch(label); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return Frequency{}, fmt.Errorf("%w: invalid minute frequency %q", errs.ErrCalendar, label)
		}
		return NewMinuteN(n), nil
	}

	return Frequency{}, fmt.Errorf("%w: unrecognised frequency %q", errs.ErrCalendar, label)
}

// Label renders the frequency back to its canonical string form.
func (f Frequency) Label() string {
	switch f.kind {
	case Daily:
		return "D"
	case Hourly:
		return "H"
	case MonthEnd:
		return "M"
	case MonthStart:
		return "MS"
	case Irregular:
		return "IRR"
	case MinuteN:
		if f.n == 30 {
			return "30min"
		}
		return fmt.Sprintf("%dmin", f.n)
	}
	return "?"
}

// IsIrregular reports whether this frequency forbids tick arithmetic.
func (f Frequency) IsIrregular() bool {
	return f.kind == Irregular
}

// intervalSeconds returns the fixed tick stride for sub-daily and daily
// frequencies. Month-anchored frequencies have no fixed stride (variable
// day counts) and return ok=false.
func (f Frequency) intervalSeconds() (int64, bool) {
	switch f.kind {
	case Daily:
		return 86400, true
	case Hourly:
		return 3600, true
	case MinuteN:
		return int64(f.n) * 60, true
	}
	return 0, false
}

// Aligned reports whether ts falls exactly on one of this frequency's
// ticks (irrespective of any particular anchor).
func (f Frequency) Aligned(ts int64) bool {
	if f.IsIrregular() {
		return true
	}
	if sec, ok := f.intervalSeconds(); ok {
		return ts%sec == 0
	}

	t := time.Unix(ts, 0).UTC()
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	switch f.kind {
	case MonthStart:
		return t.Day() == 1
	case MonthEnd:
		return t.Day() == lastDayOfMonth(t)
	}
	return false
}

func lastDayOfMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// Tick returns the i-th timestamp from anchor (i may be negative).
func (f Frequency) Tick(i int64, anchor int64) (int64, error) {
	if f.IsIrregular() {
		return 0, fmt.Errorf("%w: tick arithmetic undefined for IRR", errs.ErrNotImplemented)
	}
	if sec, ok := f.intervalSeconds(); ok {
		return anchor + i*sec, nil
	}

	t := time.Date(time.Unix(anchor, 0).UTC().Year(), time.Unix(anchor, 0).UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	switch f.kind {
	case MonthStart:
		return t.AddDate(0, int(i), 0).Unix(), nil
	case MonthEnd:
		return t.AddDate(0, int(i)+1, 0).AddDate(0, 0, -1).Unix(), nil
	}
	return 0, fmt.Errorf("%w: unhandled frequency kind", errs.ErrCalendar)
}

// Offset returns the integer number of ticks from a to b (may be
// negative). Month-anchored frequencies use calendar (year, month)
// arithmetic; all others use pure integer division by the fixed stride.
func (f Frequency) Offset(a, b int64) (int64, error) {
	if f.IsIrregular() {
		return 0, fmt.Errorf("%w: offset undefined for IRR", errs.ErrNotImplemented)
	}
	if sec, ok := f.intervalSeconds(); ok {
		diff := b - a
		if diff%sec != 0 {
			return 0, fmt.Errorf("%w: %d is not a whole number of ticks from %d", errs.ErrCalendar, b, a)
		}
		return diff / sec, nil
	}

	ta, tb := time.Unix(a, 0).UTC(), time.Unix(b, 0).UTC()
	months := int64(tb.Year()-ta.Year())*12 + int64(tb.Month()-ta.Month())
	return months, nil
}

// Range returns the inclusive tick sequence from a to b. Both bounds must
// be aligned, as Normalize guarantees: b is not clamped to a tick, and for
// fixed-stride frequencies a b that is not a whole number of ticks from a
// is rejected with ErrCalendar.
func (f Frequency) Range(a, b int64) ([]int64, error) {
	if f.IsIrregular() {
		return nil, fmt.Errorf("%w: range undefined for IRR", errs.ErrNotImplemented)
	}
	n, err := f.Offset(a, b)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: range end %d precedes start %d", errs.ErrCalendar, b, a)
	}

	out := make([]int64, 0, n+1)
	for i := int64(0); i <= n; i++ {
		t, err := f.Tick(i, a)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Point is one (timestamp, value) input pair prior to normalisation.
type Point struct {
	Timestamp int64
	Value     float64
}

// Normalize sorts points by timestamp, rejects duplicate timestamps, and
// for regular frequencies reindexes the series onto the frequency's tick
// sequence -- slots with no supplied value become missing records. The
// irregular frequency is passed through as-is (sorted, deduplicated) with
// no reindexing, since there is no concept of a gap.
func Normalize(f Frequency, points []Point) ([]record.Record, error) {
	if len(points) == 0 {
		return nil, nil
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Timestamp == sorted[i-1].Timestamp {
			return nil, fmt.Errorf("%w: duplicate timestamp %d", errs.ErrCalendar, sorted[i].Timestamp)
		}
	}

	if f.IsIrregular() {
		recs := make([]record.Record, len(sorted))
		for i, p := range sorted {
			recs[i] = record.New(p.Timestamp, p.Value)
		}
		return recs, nil
	}

	for _, p := range sorted {
		if !f.Aligned(p.Timestamp) {
			return nil, fmt.Errorf("%w: timestamp %d not aligned to frequency %s", errs.ErrCalendar, p.Timestamp, f.Label())
		}
	}

	ticks, err := f.Range(sorted[0].Timestamp, sorted[len(sorted)-1].Timestamp)
	if err != nil {
		return nil, err
	}

	byTimestamp := make(map[int64]float64, len(sorted))
	for _, p := range sorted {
		byTimestamp[p.Timestamp] = p.Value
	}

	recs := make([]record.Record, len(ticks))
	for i, t := range ticks {
		if v, ok := byTimestamp[t]; ok {
			recs[i] = record.New(t, v)
		} else {
			recs[i] = record.Missing(t)
		}
	}
	return recs, nil
}
