package health

import (
	"errors"
	"sync/atomic"
)

// StartupCompleteChecker fails until the process marks itself started, so
// load balancers do not route to a server still wiring its peers up.
type StartupCompleteChecker struct {
	complete atomic.Bool
}

func NewStartupCompleteChecker() *StartupCompleteChecker {
	return &StartupCompleteChecker{}
}

func (c *StartupCompleteChecker) MarkComplete() {
	c.complete.Store(true)
}

func (c *StartupCompleteChecker) Check() error {
	if !c.complete.Load() {
		return errors.New("startup not complete")
	}
	return nil
}
