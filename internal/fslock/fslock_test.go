package fslock

import (
	"os"
	"testing"
)

func TestExclusiveBlocksSecondHandle(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "fslock_test")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	if err := Exclusive(file); err != nil {
		t.Fatal(err)
	}

	file2, err := os.Open(file.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer file2.Close()

	if err := TryExclusive(file2); err == nil {
		t.Fatalf("second exclusive lock on the same file unexpectedly succeeded")
	}

	if err := Release(file); err != nil {
		t.Fatal(err)
	}
}

func TestSharedAllowsMultipleReaders(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "fslock_test")
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	if err := Shared(file); err != nil {
		t.Fatal(err)
	}

	file2, err := os.Open(file.Name())
	if err != nil {
		t.Fatal(err)
	}
	defer file2.Close()

	if err := TryShared(file2); err != nil {
		t.Fatalf("second shared lock on the same file should succeed: %v", err)
	}

	Release(file2)
	Release(file)
}
