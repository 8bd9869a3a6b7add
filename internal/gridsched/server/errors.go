package server

import "fmt"

// ErrInvalidInput is surfaced synchronously to the caller; nothing changed.
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (err *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Message)
}

// ErrQueueFull signals submission backpressure.
type ErrQueueFull struct {
	Cap int
}

func (err *ErrQueueFull) Error() string {
	return fmt.Sprintf("job queue is full (cap %d)", err.Cap)
}

// ErrConsistency marks a request that contradicts recorded state, e.g. an
// attempt to finish a job that is not executing. The offending job is
// quarantined.
type ErrConsistency struct {
	JobID   string
	Message string
}

func (err *ErrConsistency) Error() string {
	return fmt.Sprintf("job %q: %s", err.JobID, err.Message)
}
