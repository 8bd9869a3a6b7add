package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgrid/gridsched/internal/gridsched/job"
)

func TestScheduleStampsExecutionMetadata(t *testing.T) {
	cfg := testConfig()
	s := newStore(0)
	res := localResource(s, "R1", 5, t0)

	j := queuedJob("a-0000000001", 10, t0)
	q := queueOf(j)
	now := t0.Add(time.Second)

	picked := Schedule(q, s, res, now, cfg)
	require.NotNil(t, picked)
	assert.Equal(t, "a-0000000001", picked.ID)
	assert.Equal(t, job.Executing, picked.State)
	assert.Equal(t, now, picked.ExecutingAt)
	assert.Equal(t, 5.0, picked.ExecPrice)
	assert.Equal(t, 5.0, picked.ExecRawDiff)
	assert.Equal(t, "R1", picked.AssignedResource)
	assert.Equal(t, 0, q.Len())

	last, ok := res.PriceHist.Last()
	require.True(t, ok)
	assert.Equal(t, 5.0, last)
	last, ok = res.SchedHist.Last()
	require.True(t, ok)
	assert.Equal(t, 1.0, last)
	assert.Equal(t, 1, res.SchedCount)
	assert.InDelta(t, 0.1, res.Load, 1e-9)
}

func TestScheduleEmptyReplyStepsLoadDown(t *testing.T) {
	cfg := testConfig()
	s := newStore(0)
	res := localResource(s, "R1", 5, t0)
	res.Load = 0.5

	// Only an incompatible job is queued.
	j := queuedJob("a-0000000001", 10, t0)
	j.Architecture = "ARM64"
	q := queueOf(j)

	picked := Schedule(q, s, res, t0.Add(time.Second), cfg)
	assert.Nil(t, picked)
	assert.Equal(t, 1, q.Len())

	last, ok := res.SchedHist.Last()
	require.True(t, ok)
	assert.Equal(t, 0.0, last)
	assert.InDelta(t, 0.45, res.Load, 1e-9)
}

func TestSchedulePrefersHigherHeadroom(t *testing.T) {
	cfg := testConfig()
	cfg.ExpireAfter = 0
	cfg.AgeMult = 0
	s := newStore(0)
	res := localResource(s, "R1", 5, t0)

	cheap := queuedJob("a-0000000001", 6, t0)
	rich := queuedJob("a-0000000002", 20, t0)
	q := queueOf(cheap, rich)

	picked := Schedule(q, s, res, t0.Add(time.Second), cfg)
	require.NotNil(t, picked)
	assert.Equal(t, "a-0000000002", picked.ID)

	// The cheaper job stays queued and is picked next.
	picked = Schedule(q, s, res, t0.Add(2*time.Second), cfg)
	require.NotNil(t, picked)
	assert.Equal(t, "a-0000000001", picked.ID)
	assert.Equal(t, 0, q.Len())
}
