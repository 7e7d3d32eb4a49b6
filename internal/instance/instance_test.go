package instance

import (
	"math"
	"testing"
	"time"

	"github.com/amacd31/hydrotsdb/internal/calendar"
)

func day(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

func fixedClock(t int64) Clock {
	return func() int64 { return t }
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	eng := New(dir, fixedClock(1000))

	res, err := eng.Write("abc123", calendar.NewDaily(), []Point{
		{Timestamp: day(2014, time.January, 1), Value: 1.0},
		{Timestamp: day(2014, time.January, 2), Value: 2.0},
		{Timestamp: day(2014, time.January, 3), Value: 3.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 3 || res.Updated != 0 {
		t.Fatalf("unexpected write result: %+v", res)
	}

	points, err := eng.Read("abc123")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1.0, 2.0, 3.0}
	for i, p := range points {
		if p.Value != want[i] {
			t.Fatalf("point %d: got %v want %v", i, p.Value, want[i])
		}
	}
}

func TestReadAsOfReflectsReplacementTimeOfEachWrite(t *testing.T) {
	dir := t.TempDir()

	clockValue := int64(1000)
	eng := New(dir, func() int64 { return clockValue })

	if _, err := eng.Write("h", calendar.NewDaily(), []Point{
		{Timestamp: day(2014, time.January, 2), Value: math.NaN()},
		{Timestamp: day(2014, time.January, 3), Value: 3.0},
	}); err != nil {
		t.Fatal(err)
	}
	t1 := clockValue

	clockValue = 2000
	if _, err := eng.Write("h", calendar.NewDaily(), []Point{
		{Timestamp: day(2014, time.January, 3), Value: 4.0},
	}); err != nil {
		t.Fatal(err)
	}
	t2 := clockValue

	at1, err := eng.ReadAsOf("h", t1)
	if err != nil {
		t.Fatal(err)
	}
	if len(at1) != 2 || !math.IsNaN(at1[0].Value) || at1[1].Value != 3.0 {
		t.Fatalf("unexpected as-of-t1 result: %+v", at1)
	}

	at2, err := eng.ReadAsOf("h", t2)
	if err != nil {
		t.Fatal(err)
	}
	if len(at2) != 2 || !math.IsNaN(at2[0].Value) || at2[1].Value != 4.0 {
		t.Fatalf("unexpected as-of-t2 result: %+v", at2)
	}
}

func TestWriteWithNoPointsIsANoOp(t *testing.T) {
	dir := t.TempDir()
	eng := New(dir, fixedClock(1))

	res, err := eng.Write("empty", calendar.NewDaily(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 0 || res.Updated != 0 {
		t.Fatalf("expected no-op result, got %+v", res)
	}

	points, err := eng.Read("empty")
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 0 {
		t.Fatalf("expected no data file to have been created, got %+v", points)
	}
}
