package tsdb

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amacd31/hydrotsdb/internal/errs"
)

func day(y int, m int, d int) int64 {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC).Unix()
}

func TestCreateOpenRegisterWriteReadRoundTrips(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	if err := CreateDB(root); err != nil {
		t.Fatalf("create db: %v", err)
	}

	if err := CreateDB(root); !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate recreating an existing db, got %v", err)
	}

	db, err := OpenDB(root)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := db.RegisterTimeseries("streamflow-401026"); err != nil {
		t.Fatalf("register timeseries: %v", err)
	}
	if err := db.RegisterMeasurand("streamflow"); err != nil {
		t.Fatalf("register measurand: %v", err)
	}
	if err := db.RegisterSource("bom"); err != nil {
		t.Fatalf("register source: %v", err)
	}

	handle, err := db.CreateInstance("streamflow-401026", "D", "", "streamflow", "bom")
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	if len(handle) != 32 {
		t.Fatalf("expected a 32-character handle, got %q", handle)
	}

	points := []Point{
		{Timestamp: day(2005, 1, 1), Value: 1.0},
		{Timestamp: day(2005, 1, 2), Value: 2.0},
		{Timestamp: day(2005, 1, 3), Value: 3.0},
	}
	res, err := db.Write("streamflow-401026", "D", "streamflow", "bom", points)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.Created != 3 || res.Updated != 0 {
		t.Fatalf("unexpected write result %+v", res)
	}

	got, err := db.Read("streamflow-401026", "D", "streamflow", "bom")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[0].Value != 1.0 || got[2].Value != 3.0 {
		t.Fatalf("unexpected read-back series %+v", got)
	}
}

func TestOpenDBMissingReturnsNotFound(t *testing.T) {
	if _, err := OpenDB(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound opening a missing db, got %v", err)
	}
}

func TestWriteAgainstUnregisteredInstanceFails(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	if err := CreateDB(root); err != nil {
		t.Fatalf("create db: %v", err)
	}
	db, err := OpenDB(root)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	_, err = db.Write("no-such-series", "D", "streamflow", "bom", []Point{{Timestamp: day(2005, 1, 1), Value: 1.0}})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound writing to an unregistered instance, got %v", err)
	}
}

func TestListInstancesReflectsRegistrations(t *testing.T) {
	root := filepath.Join(t.TempDir(), "db")
	if err := CreateDB(root); err != nil {
		t.Fatalf("create db: %v", err)
	}
	db, err := OpenDB(root)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	_ = db.RegisterTimeseries("streamflow-401026")
	_ = db.RegisterMeasurand("streamflow")
	_ = db.RegisterSource("bom")
	_ = db.RegisterAttribute("station_name")

	handle, err := db.CreateInstance("streamflow-401026", "D", "", "streamflow", "bom")
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	if err := db.BindAttributeValue(handle, "station_name", "Cotter River at Gingera"); err != nil {
		t.Fatalf("bind attribute: %v", err)
	}

	instances, err := db.ListInstances(InstanceFilter{TimeseriesID: "streamflow-401026"})
	if err != nil {
		t.Fatalf("list instances: %v", err)
	}
	if len(instances) != 1 || instances[0].Attributes["station_name"] != "Cotter River at Gingera" {
		t.Fatalf("unexpected instances %+v", instances)
	}

	version, err := db.SchemaVersion()
	if err != nil || version != 1 {
		t.Fatalf("unexpected schema version %d, err=%v", version, err)
	}
}
