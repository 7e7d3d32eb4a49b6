package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/amacd31/hydrotsdb/internal/errs"
)

// runDirectoryContractTests exercises the InstanceDirectory contract
// against any implementation, so MemoryDirectory and SQLiteDirectory are
// held to exactly the same behaviour.
func runDirectoryContractTests(t *testing.T, dir InstanceDirectory) {
	t.Helper()

	if err := dir.RegisterTimeseries("streamflow-401026"); err != nil {
		t.Fatalf("register timeseries: %v", err)
	}
	if err := dir.RegisterTimeseries("streamflow-401026"); !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate re-registering timeseries, got %v", err)
	}

	if err := dir.RegisterMeasurand("streamflow"); err != nil {
		t.Fatalf("register measurand: %v", err)
	}
	if err := dir.RegisterSource("bom"); err != nil {
		t.Fatalf("register source: %v", err)
	}
	if err := dir.RegisterAttribute("station_name"); err != nil {
		t.Fatalf("register attribute: %v", err)
	}

	handle, err := dir.CreateInstance("streamflow-401026", "D", "initial header", "streamflow", "bom")
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	if len(handle) != 32 {
		t.Fatalf("expected a 32-character hex handle, got %q", handle)
	}

	if _, err := dir.CreateInstance("streamflow-401026", "D", "initial header", "streamflow", "bom"); !errors.Is(err, errs.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate creating the same instance twice, got %v", err)
	}

	if _, err := dir.CreateInstance("unknown-series", "D", "", "streamflow", "bom"); err == nil {
		t.Fatal("expected an error creating an instance for an unregistered timeseries")
	}

	got, err := dir.Lookup("streamflow-401026", "D", "streamflow", "bom")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != handle {
		t.Fatalf("lookup returned %q, want %q", got, handle)
	}

	if _, err := dir.Lookup("streamflow-401026", "H", "streamflow", "bom"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an unbound key, got %v", err)
	}

	if err := dir.BindAttributeValue(handle, "station_name", "Cotter River at Gingera"); err != nil {
		t.Fatalf("bind attribute value: %v", err)
	}
	if err := dir.BindAttributeValue(handle, "not_an_attribute", "x"); err == nil {
		t.Fatal("expected an error binding an unregistered attribute")
	}

	series, err := dir.ListTimeseries()
	if err != nil || len(series) != 1 || series[0] != "streamflow-401026" {
		t.Fatalf("unexpected ListTimeseries result: %v, err=%v", series, err)
	}

	instances, err := dir.ListInstances(InstanceFilter{TimeseriesID: "streamflow-401026"})
	if err != nil {
		t.Fatalf("list instances: %v", err)
	}
	if len(instances) != 1 || instances[0].Handle != handle {
		t.Fatalf("unexpected ListInstances result: %+v", instances)
	}
	if instances[0].Attributes["station_name"] != "Cotter River at Gingera" {
		t.Fatalf("expected bound attribute value to round-trip, got %+v", instances[0].Attributes)
	}

	version, err := dir.SchemaVersion()
	if err != nil || version != SchemaVersion {
		t.Fatalf("unexpected schema version %d, err=%v", version, err)
	}
}

func TestMemoryDirectoryContract(t *testing.T) {
	runDirectoryContractTests(t, NewMemoryDirectory())
}

func TestSQLiteDirectoryContract(t *testing.T) {
	dir, err := OpenSQLiteDirectory(filepath.Join(t.TempDir(), "catalog.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite directory: %v", err)
	}
	defer dir.Close()
	runDirectoryContractTests(t, dir)
}
