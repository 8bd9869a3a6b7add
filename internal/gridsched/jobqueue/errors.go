// Package jobqueue holds the positionally addressed job containers owned by a
// server. Ordering reflects arrival; all scheduling policy lives elsewhere.
package jobqueue

import "fmt"

// ErrDuplicateJobID is returned when inserting a job whose id is already
// queued.
type ErrDuplicateJobID struct {
	ID string
}

func (err *ErrDuplicateJobID) Error() string {
	return fmt.Sprintf("job %q is already in the queue", err.ID)
}

// ErrIndexOutOfRange is returned for positional operations beyond the queue
// length.
type ErrIndexOutOfRange struct {
	Index  int
	Length int
}

func (err *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index %d out of range (queue length %d)", err.Index, err.Length)
}

// ErrNotFound is returned when an id based lookup or removal misses.
type ErrNotFound struct {
	ID string
}

func (err *ErrNotFound) Error() string {
	return fmt.Sprintf("job %q is not in the queue", err.ID)
}
