package job

import (
	"fmt"
	"time"
)

// EmptyJobID marks the sentinel reply handed to resources when no queued job
// is eligible. Empty jobs keep the resource pricing loop running.
const EmptyJobID = "EMPTY"

type State int

const (
	Submitted State = iota
	Executing
	DoneLocal
	DoneDelivered
)

func (s State) String() string {
	switch s {
	case Submitted:
		return "SUBMITTED"
	case Executing:
		return "EXECUTING"
	case DoneLocal:
		return "DONE_LOCAL"
	case DoneDelivered:
		return "DONE_DELIVERED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ScheduleHint is either absent or nominates a peer to receive the job on the
// next migration phase.
type ScheduleHint struct {
	Peer string `json:"peer,omitempty"`
}

func NoHint() ScheduleHint { return ScheduleHint{} }

func MigrateTo(peer string) ScheduleHint { return ScheduleHint{Peer: peer} }

func (h ScheduleHint) None() bool { return h.Peer == "" }

// Key is the immutable job identity. IDs are server assigned and unique
// within an owner.
type Key struct {
	Owner string `json:"owner"`
	ID    string `json:"id"`
}

func (k Key) String() string { return k.Owner + "/" + k.ID }

// Spec is the submission record handed to Server.Submit.
type Spec struct {
	CPUTime      int64    `json:"cpuTime"`
	CPUCount     int      `json:"cpuCount"`
	NodeCount    int      `json:"nodeCount"`
	Memory       int64    `json:"memory"`
	Disk         int64    `json:"disk"`
	Architecture string   `json:"architecture"`
	RuntimeEnvs  []string `json:"runtimeEnvs,omitempty"`
	VGrid        string   `json:"vgrid"`
	MaxPrice     float64  `json:"maxPrice"`
}

type Job struct {
	Owner string `json:"owner"`
	ID    string `json:"id"`

	CPUTime      int64    `json:"cpuTime"`
	CPUCount     int      `json:"cpuCount"`
	NodeCount    int      `json:"nodeCount"`
	Memory       int64    `json:"memory"`
	Disk         int64    `json:"disk"`
	Architecture string   `json:"architecture"`
	RuntimeEnvs  []string `json:"runtimeEnvs,omitempty"`
	VGrid        string   `json:"vgrid"`
	MaxPrice     float64  `json:"maxPrice"`

	SubmittedAt time.Time `json:"submittedAt"`
	QueuedAt    time.Time `json:"queuedAt"`

	MigrateCount    int          `json:"migrateCount"`
	MigrateAttempts int          `json:"migrateAttempts,omitempty"`
	Hint            ScheduleHint `json:"hint,omitempty"`
	// Servers a finished job has passed through on its way back to the
	// owner. A repeat visit means a routing loop.
	VisitedServers []string `json:"visitedServers,omitempty"`

	State State `json:"state"`

	// Execution metadata, written once when a resource picks the job.
	ExecutingAt      time.Time `json:"executingAt,omitempty"`
	ExecPrice        float64   `json:"execPrice,omitempty"`
	ExecRawDiff      float64   `json:"execRawDiff,omitempty"`
	AssignedResource string    `json:"assignedResource,omitempty"`
	// Opaque session identifier the execution environment uses to stream
	// input files and report output.
	SessionID string `json:"sessionId,omitempty"`
}

func New(owner, id string, spec Spec, now time.Time) *Job {
	return &Job{
		Owner:        owner,
		ID:           id,
		CPUTime:      spec.CPUTime,
		CPUCount:     spec.CPUCount,
		NodeCount:    spec.NodeCount,
		Memory:       spec.Memory,
		Disk:         spec.Disk,
		Architecture: spec.Architecture,
		RuntimeEnvs:  spec.RuntimeEnvs,
		VGrid:        spec.VGrid,
		MaxPrice:     spec.MaxPrice,
		SubmittedAt:  now,
		QueuedAt:     now,
		State:        Submitted,
	}
}

// Empty returns the sentinel job for a resource request that matched nothing.
func Empty(resourceID string, sleepCPUTime int64) *Job {
	return &Job{
		ID:               EmptyJobID,
		CPUTime:          sleepCPUTime,
		AssignedResource: resourceID,
	}
}

func (j *Job) Key() Key { return Key{Owner: j.Owner, ID: j.ID} }

func (j *Job) IsEmpty() bool { return j.ID == EmptyJobID }

func (j *Job) Visited(serverID string) bool {
	for _, s := range j.VisitedServers {
		if s == serverID {
			return true
		}
	}
	return false
}

// DeadLetter quarantines a job removed from the queues after a consistency
// error. Owners learn about their quarantined jobs from the next snapshot.
type DeadLetter struct {
	Job    Job       `json:"job"`
	Reason string    `json:"reason"`
	Server string    `json:"server"`
	At     time.Time `json:"at"`
}
