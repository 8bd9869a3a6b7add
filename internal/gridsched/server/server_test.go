package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgrid/gridsched/internal/common/util"
	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
)

var epoch = time.Unix(2000000, 0)

func testServer(id string, cfg configuration.SchedulingConfig) (*Server, *util.DummyClock) {
	clock := &util.DummyClock{T: epoch}
	return New(id, cfg, clock), clock
}

func submitSpec(maxPrice float64) job.Spec {
	return job.Spec{
		CPUTime:      60,
		CPUCount:     1,
		NodeCount:    1,
		Memory:       256,
		Disk:         256,
		Architecture: "X86",
		VGrid:        "science",
		MaxPrice:     maxPrice,
	}
}

func offerSpec(id string, minPrice float64) infostore.ResourceSpec {
	return infostore.ResourceSpec{
		ResourceID:   id,
		CPUTime:      120,
		MinPrice:     minPrice,
		Group:        "science",
		Architecture: "X86",
		CPUCount:     4,
		NodeCount:    2,
		Memory:       2048,
		Disk:         4096,
	}
}

func TestSubmitRequestReturnRoundTrip(t *testing.T) {
	s, clock := testServer("A", configuration.DefaultSchedulingConfig())

	id, err := s.Submit("alice", submitSpec(10))
	require.NoError(t, err)
	assert.Equal(t, "A-0000000001", id)
	assert.Equal(t, 1, s.QueueLen())

	clock.Advance(time.Second)
	j, err := s.Request(offerSpec("R1", 5))
	require.NoError(t, err)
	require.False(t, j.IsEmpty())
	assert.Equal(t, id, j.ID)
	assert.Equal(t, 5.0, j.ExecPrice)
	assert.Equal(t, 5.0, j.ExecRawDiff)
	assert.Equal(t, "R1", j.AssignedResource)
	assert.NotEmpty(t, j.SessionID)
	assert.Equal(t, 0, s.QueueLen())

	snap := s.SnapshotStatus()
	res := snap.Resources["R1"]
	require.NotNil(t, res)
	last, ok := res.PriceHist.Last()
	require.True(t, ok)
	assert.Equal(t, 5.0, last)

	clock.Advance(30 * time.Second)
	require.NoError(t, s.ReturnFinished("R1", j))
	assert.Equal(t, 1, s.DoneLen())

	// The owner submitted here, so the result is delivered immediately.
	done, ok := s.DoneJob(id)
	require.True(t, ok)
	assert.Equal(t, job.DoneDelivered, done.State)
	assert.Equal(t, []string{"A"}, done.VisitedServers)

	user := s.SnapshotStatus().Users["alice"]
	require.NotNil(t, user)
	assert.Equal(t, 1, user.DoneCount)
}

func TestRequestWithNoEligibleJobRepliesEmpty(t *testing.T) {
	cfg := configuration.DefaultSchedulingConfig()
	s, _ := testServer("A", cfg)

	spec := submitSpec(10)
	spec.Architecture = "ARM64"
	_, err := s.Submit("alice", spec)
	require.NoError(t, err)

	j, err := s.Request(offerSpec("R1", 5))
	require.NoError(t, err)
	assert.True(t, j.IsEmpty())
	assert.Equal(t, "R1", j.AssignedResource)
	assert.Equal(t, cfg.SleepCPUTime, j.CPUTime)
	// The incompatible job stays queued.
	assert.Equal(t, 1, s.QueueLen())
}

func TestSubmitValidation(t *testing.T) {
	s, _ := testServer("A", configuration.DefaultSchedulingConfig())

	_, err := s.Submit("", submitSpec(10))
	var invalid *ErrInvalidInput
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "owner", invalid.Field)

	spec := submitSpec(10)
	spec.CPUTime = 0
	_, err = s.Submit("alice", spec)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "cpuTime", invalid.Field)

	spec = submitSpec(-1)
	_, err = s.Submit("alice", spec)
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "maxPrice", invalid.Field)

	_, err = s.Request(infostore.ResourceSpec{})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "resourceId", invalid.Field)
}

func TestSubmitBackpressure(t *testing.T) {
	cfg := configuration.DefaultSchedulingConfig()
	cfg.QueueCap = 1
	s, _ := testServer("A", cfg)

	_, err := s.Submit("alice", submitSpec(10))
	require.NoError(t, err)

	_, err = s.Submit("alice", submitSpec(10))
	var full *ErrQueueFull
	require.ErrorAs(t, err, &full)
	assert.Equal(t, 1, full.Cap)

	migrated := job.New("bob", "B-0000000001", submitSpec(10), epoch)
	require.ErrorAs(t, s.ReceiveJob(migrated), &full)
}

func TestJobsLiveInExactlyOnePlace(t *testing.T) {
	s, clock := testServer("A", configuration.DefaultSchedulingConfig())

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.Submit("alice", submitSpec(10))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	clock.Advance(time.Second)
	j, err := s.Request(offerSpec("R1", 5))
	require.NoError(t, err)
	require.False(t, j.IsEmpty())
	require.NoError(t, s.ReturnFinished("R1", j))

	assert.Equal(t, 2, s.QueueLen())
	assert.Equal(t, 1, s.DoneLen())
	for _, id := range ids {
		_, queued := s.QueuedJob(id)
		_, finished := s.DoneJob(id)
		assert.True(t, queued != finished, "job %s must be queued or done, not both", id)
	}
}

func TestReturnFinishedConsistencyCheck(t *testing.T) {
	s, _ := testServer("A", configuration.DefaultSchedulingConfig())

	id, err := s.Submit("alice", submitSpec(10))
	require.NoError(t, err)
	j, ok := s.QueuedJob(id)
	require.True(t, ok)

	// Never handed to any resource.
	var consistency *ErrConsistency
	require.ErrorAs(t, s.ReturnFinished("R1", j), &consistency)
	assert.Equal(t, 0, s.QueueLen())
	assert.Equal(t, 0, s.DoneLen())

	letters := s.DeadLetters()
	require.Len(t, letters, 1)
	assert.Equal(t, id, letters[0].Job.ID)
	assert.Equal(t, "A", letters[0].Server)

	// Finish reported by a resource that was not assigned the job.
	id2, err := s.Submit("alice", submitSpec(10))
	require.NoError(t, err)
	scheduled, err := s.Request(offerSpec("R1", 5))
	require.NoError(t, err)
	require.Equal(t, id2, scheduled.ID)
	require.ErrorAs(t, s.ReturnFinished("R2", scheduled), &consistency)
	assert.Len(t, s.DeadLetters(), 2)
}

func TestReturnFinishedDuplicateIsAbsorbed(t *testing.T) {
	s, _ := testServer("A", configuration.DefaultSchedulingConfig())

	_, err := s.Submit("alice", submitSpec(10))
	require.NoError(t, err)
	j, err := s.Request(offerSpec("R1", 5))
	require.NoError(t, err)

	require.NoError(t, s.ReturnFinished("R1", j))
	require.NoError(t, s.ReturnFinished("R1", j))
	assert.Equal(t, 1, s.DoneLen())
}

func TestReceiveJobResetsMigrationState(t *testing.T) {
	s, clock := testServer("A", configuration.DefaultSchedulingConfig())
	clock.Advance(time.Hour)

	j := job.New("bob", "B-0000000001", submitSpec(10), epoch)
	j.Hint = job.MigrateTo("C")
	j.MigrateAttempts = 2
	j.MigrateCount = 1

	require.NoError(t, s.ReceiveJob(j))
	got, ok := s.QueuedJob("B-0000000001")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), got.QueuedAt)
	assert.True(t, got.Hint.None())
	assert.Equal(t, 0, got.MigrateAttempts)
	assert.Equal(t, 1, got.MigrateCount)
	assert.Equal(t, job.Submitted, got.State)

	// Duplicate delivery of the same (owner, id) is not an error.
	dup := job.New("bob", "B-0000000001", submitSpec(10), epoch)
	require.NoError(t, s.ReceiveJob(dup))
	assert.Equal(t, 1, s.QueueLen())
}

func TestReceiveResultLoopQuarantine(t *testing.T) {
	s, _ := testServer("A", configuration.DefaultSchedulingConfig())

	j := job.New("bob", "B-0000000001", submitSpec(10), epoch)
	j.State = job.DoneLocal
	j.VisitedServers = []string{"B", "A", "C"}

	require.NoError(t, s.ReceiveResult(j))
	assert.Equal(t, 0, s.DoneLen())

	letters := s.DeadLetters()
	require.Len(t, letters, 1)
	assert.Equal(t, "return-route loop", letters[0].Reason)

	// Quarantine notices travel with the status snapshot.
	snap := s.SnapshotStatus()
	require.Len(t, snap.DeadLetters, 1)
	assert.Equal(t, "B-0000000001", snap.DeadLetters[0].Job.ID)
}

func TestSubmitIDsAreOrdered(t *testing.T) {
	s, _ := testServer("A", configuration.DefaultSchedulingConfig())
	prev := ""
	for i := 0; i < 12; i++ {
		id, err := s.Submit("alice", submitSpec(10))
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}
