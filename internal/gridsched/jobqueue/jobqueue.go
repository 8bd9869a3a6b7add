package jobqueue

import (
	"github.com/vgrid/gridsched/internal/gridsched/job"
)

// Queue is an ordered mutable sequence of job records with lookup and removal
// by id or index. Duplicate ids are rejected.
type Queue struct {
	jobs []*job.Job
}

func New() *Queue {
	return &Queue{jobs: []*job.Job{}}
}

func (q *Queue) Len() int { return len(q.jobs) }

// Enqueue appends a job at the end of the queue.
func (q *Queue) Enqueue(j *job.Job) error {
	return q.EnqueueAt(j, len(q.jobs))
}

// EnqueueAt inserts a job at the given index.
func (q *Queue) EnqueueAt(j *job.Job, index int) error {
	if index < 0 || index > len(q.jobs) {
		return &ErrIndexOutOfRange{Index: index, Length: len(q.jobs)}
	}
	for _, queued := range q.jobs {
		if queued.Owner == j.Owner && queued.ID == j.ID {
			return &ErrDuplicateJobID{ID: j.ID}
		}
	}
	q.jobs = append(q.jobs, nil)
	copy(q.jobs[index+1:], q.jobs[index:])
	q.jobs[index] = j
	return nil
}

// Get inspects the job at index without removing it.
func (q *Queue) Get(index int) (*job.Job, error) {
	if index < 0 || index >= len(q.jobs) {
		return nil, &ErrIndexOutOfRange{Index: index, Length: len(q.jobs)}
	}
	return q.jobs[index], nil
}

// GetByID finds the job with the given id by linear scan.
func (q *Queue) GetByID(id string) (*job.Job, error) {
	for _, j := range q.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, &ErrNotFound{ID: id}
}

// Dequeue removes and returns the job at index.
func (q *Queue) Dequeue(index int) (*job.Job, error) {
	if index < 0 || index >= len(q.jobs) {
		return nil, &ErrIndexOutOfRange{Index: index, Length: len(q.jobs)}
	}
	j := q.jobs[index]
	q.jobs = append(q.jobs[:index], q.jobs[index+1:]...)
	return j, nil
}

// DequeueByID removes and returns the job with the given id.
func (q *Queue) DequeueByID(id string) (*job.Job, error) {
	for i, j := range q.jobs {
		if j.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return j, nil
		}
	}
	return nil, &ErrNotFound{ID: id}
}

// Contains reports whether a job with the given identity is queued.
func (q *Queue) Contains(key job.Key) bool {
	for _, j := range q.jobs {
		if j.Owner == key.Owner && j.ID == key.ID {
			return true
		}
	}
	return false
}

// Jobs returns the queue contents in order. The slice is a copy but the jobs
// are the queued records themselves.
func (q *Queue) Jobs() []*job.Job {
	out := make([]*job.Job, len(q.jobs))
	copy(out, q.jobs)
	return out
}
