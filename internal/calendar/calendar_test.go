package calendar

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/amacd31/hydrotsdb/internal/errs"
)

func day(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

func TestParseRoundTripsLabel(t *testing.T) {
	cases := []string{"D", "H", "M", "MS", "IRR", "30min", "5min"}
	for _, label := range cases {
		f, err := Parse(label)
		if err != nil {
			t.Fatalf("Parse(%q): %v", label, err)
		}
		if got := f.Label(); got != label {
			t.Errorf("Parse(%q).Label() = %q", label, got)
		}
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	if _, err := Parse("banana"); !errors.Is(err, errs.ErrCalendar) {
		t.Fatalf("expected ErrCalendar, got %v", err)
	}
}

func TestDailyOffsetAndRange(t *testing.T) {
	f := NewDaily()
	a := day(2014, time.January, 1)
	b := day(2014, time.January, 3)

	n, err := f.Offset(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected offset 2, got %d", n)
	}

	ticks, err := f.Range(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(ticks) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(ticks))
	}
}

func TestMonthEndOffsetAcrossVariableMonthLengths(t *testing.T) {
	f := NewMonthEnd()
	jan := day(2014, time.January, 31)
	feb := day(2014, time.February, 28)
	n, err := f.Offset(jan, feb)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected offset 1 across Jan->Feb month-end, got %d", n)
	}
}

func TestIrregularForbidsTickArithmetic(t *testing.T) {
	f := NewIrregular()
	if _, err := f.Offset(0, 100); !errors.Is(err, errs.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if _, err := f.Range(0, 100); !errors.Is(err, errs.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestNormalizeSortsAndFillsGaps(t *testing.T) {
	f := NewDaily()
	points := []Point{
		{Timestamp: day(2014, time.January, 3), Value: 3.0},
		{Timestamp: day(2014, time.January, 1), Value: 1.0},
	}

	recs, err := Normalize(f, points)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records (gap filled), got %d", len(recs))
	}
	if recs[0].Float() != 1.0 || recs[2].Float() != 3.0 {
		t.Fatalf("endpoints wrong: %+v", recs)
	}
	if !math.IsNaN(recs[1].Float()) {
		t.Fatalf("middle gap should be missing, got %v", recs[1].Float())
	}
}

func TestNormalizeRejectsDuplicates(t *testing.T) {
	f := NewDaily()
	points := []Point{
		{Timestamp: day(2014, time.January, 1), Value: 1.0},
		{Timestamp: day(2014, time.January, 1), Value: 2.0},
	}
	if _, err := Normalize(f, points); !errors.Is(err, errs.ErrCalendar) {
		t.Fatalf("expected ErrCalendar for duplicate timestamp, got %v", err)
	}
}

func TestNormalizeRejectsMisalignedTimestamp(t *testing.T) {
	f := NewDaily()
	points := []Point{
		{Timestamp: day(2014, time.January, 1) + 3600, Value: 1.0},
	}
	if _, err := Normalize(f, points); !errors.Is(err, errs.ErrCalendar) {
		t.Fatalf("expected ErrCalendar for misaligned timestamp, got %v", err)
	}
}

func TestNormalizeIrregularDoesNotFillGaps(t *testing.T) {
	f := NewIrregular()
	points := []Point{
		{Timestamp: day(2014, time.January, 1), Value: 1.0},
		{Timestamp: day(2014, time.January, 5), Value: 5.0},
	}
	recs, err := Normalize(f, points)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("irregular normalize should not fill gaps, got %d records", len(recs))
	}
}
