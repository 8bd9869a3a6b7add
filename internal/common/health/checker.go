package health

// Checker reports whether one component of the process is healthy.
type Checker interface {
	Check() error
}
