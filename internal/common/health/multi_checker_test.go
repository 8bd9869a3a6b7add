package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticChecker struct{ err error }

func (c staticChecker) Check() error { return c.err }

func TestMultiCheckerAggregates(t *testing.T) {
	mc := NewMultiChecker(staticChecker{}, staticChecker{})
	assert.NoError(t, mc.Check())

	mc.Add(staticChecker{err: errors.New("broken")})
	err := mc.Check()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestStartupCompleteChecker(t *testing.T) {
	c := NewStartupCompleteChecker()
	assert.Error(t, c.Check())
	c.MarkComplete()
	assert.NoError(t, c.Check())
}
