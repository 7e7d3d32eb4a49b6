// Package fslock provides advisory file locking used to serialize writers
// against a single timeseries instance's data and log files.
//
// The storage engine assumes at most one writer per handle at a time;
// these locks are the caller-visible
// mechanism for enforcing that when multiple processes share a database
// directory.
package fslock

import (
	"os"
	"syscall"
)

// Exclusive takes a blocking exclusive (write) lock on file.
func Exclusive(file *os.File) error {
	return syscall.Flock(int(file.Fd()), syscall.LOCK_EX)
}

// Shared takes a blocking shared (read) lock on file.
func Shared(file *os.File) error {
	return syscall.Flock(int(file.Fd()), syscall.LOCK_SH)
}

// TryExclusive takes a non-blocking exclusive lock, returning an error
// immediately if the file is already locked.
func TryExclusive(file *os.File) error {
	return syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

// TryShared takes a non-blocking shared lock.
func TryShared(file *os.File) error {
	return syscall.Flock(int(file.Fd()), syscall.LOCK_SH|syscall.LOCK_NB)
}

// Release releases any lock held on file by this process.
func Release(file *os.File) error {
	return syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
}
