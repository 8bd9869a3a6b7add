package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgrid/gridsched/internal/gridsched/job"
)

func makeJob(owner, id string) *job.Job {
	return job.New(owner, id, job.Spec{CPUTime: 60, MaxPrice: 1}, time.Unix(1000, 0))
}

func TestEnqueueOrdering(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(makeJob("alice", "a-1")))
	require.NoError(t, q.Enqueue(makeJob("alice", "a-2")))
	require.NoError(t, q.EnqueueAt(makeJob("bob", "b-1"), 1))

	assert.Equal(t, 3, q.Len())
	first, err := q.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "a-1", first.ID)
	second, err := q.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "b-1", second.ID)
}

func TestEnqueueRejectsDuplicateId(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(makeJob("alice", "a-1")))

	err := q.Enqueue(makeJob("alice", "a-1"))
	require.Error(t, err)
	var dup *ErrDuplicateJobID
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "a-1", dup.ID)
	assert.Equal(t, 1, q.Len())
}

func TestPositionalOutOfRange(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(makeJob("alice", "a-1")))

	_, err := q.Get(1)
	var oor *ErrIndexOutOfRange
	assert.ErrorAs(t, err, &oor)

	_, err = q.Dequeue(-1)
	assert.ErrorAs(t, err, &oor)

	err = q.EnqueueAt(makeJob("alice", "a-2"), 5)
	assert.ErrorAs(t, err, &oor)
}

func TestDequeueByID(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(makeJob("alice", "a-1")))
	require.NoError(t, q.Enqueue(makeJob("alice", "a-2")))
	require.NoError(t, q.Enqueue(makeJob("alice", "a-3")))

	j, err := q.DequeueByID("a-2")
	require.NoError(t, err)
	assert.Equal(t, "a-2", j.ID)
	assert.Equal(t, 2, q.Len())
	assert.False(t, q.Contains(job.Key{Owner: "alice", ID: "a-2"}))

	_, err = q.DequeueByID("a-2")
	var notFound *ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestJobsReturnsCopyOfOrder(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(makeJob("alice", "a-1")))
	require.NoError(t, q.Enqueue(makeJob("bob", "b-1")))

	jobs := q.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a-1", jobs[0].ID)
	assert.Equal(t, "b-1", jobs[1].ID)

	// Mutating the returned slice must not affect the queue.
	jobs[0] = nil
	got, err := q.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
}
