package filelock

import (
	"errors"
	"fmt"
)

// ErrAlreadyLocked is returned by Lock when the instance already believes it holds the lock.
var ErrAlreadyLocked = errors.New("already locked")

// ErrNotLocked is returned by Unlock when the instance does not believe it holds the lock.
var ErrNotLocked = errors.New("not locked")

// ErrWaitTimeout is returned by WaitTimeout when the lock was not released in time.
var ErrWaitTimeout = errors.New("timeout waiting for file lock")

// ErrIO matches every *IOError with errors.Is.
var ErrIO = errors.New("filesystem operation failed")

// IOError reports a failed filesystem operation on the sentinel file.
// The lock state is left unchanged when it is returned.
type IOError struct {
	Op   string // "stat", "create" or "remove"
	Path string
	Err  error
}

// Error implements the error interface for IOError.
func (e *IOError) Error() string {
	return fmt.Sprintf("filelock: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap provides access to the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrIO) true for any IOError.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

func newIOError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
