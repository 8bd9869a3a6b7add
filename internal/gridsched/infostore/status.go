package infostore

import (
	"time"

	"github.com/vgrid/gridsched/internal/gridsched/job"
)

const (
	// Backlog of per-resource history entries.
	resourceBacklog = 100
	// Backlog of per-user history entries.
	userBacklog = 100
	// Initial load smoothing coefficient for new resources.
	defaultLoadMultiplier = 0.1
)

// ResourceSpec is what a resource declares about itself when requesting work.
type ResourceSpec struct {
	ResourceID   string   `json:"resourceId"`
	CPUTime      int64    `json:"cpuTime"`
	MinPrice     float64  `json:"minPrice"`
	Group        string   `json:"group"`
	Architecture string   `json:"architecture"`
	CPUCount     int      `json:"cpuCount"`
	NodeCount    int      `json:"nodeCount"`
	Memory       int64    `json:"memory"`
	Disk         int64    `json:"disk"`
	RuntimeEnvs  []string `json:"runtimeEnvs,omitempty"`
}

// ResourceStatus is the scheduler's view of one execution endpoint.
type ResourceStatus struct {
	ID           string   `json:"id"`
	MinPrice     float64  `json:"minPrice"`
	LastCPUTime  int64    `json:"lastCpuTime"`
	CurPrice     float64  `json:"curPrice"`
	Groups       []string `json:"groups,omitempty"`
	Architecture string   `json:"architecture"`
	CPUCount     int      `json:"cpuCount"`
	NodeCount    int      `json:"nodeCount"`
	Memory       int64    `json:"memory"`
	Disk         int64    `json:"disk"`
	RuntimeEnvs  []string `json:"runtimeEnvs,omitempty"`

	// Load is the scheduled fraction of recent requests, in [0,1].
	Load float64 `json:"load"`
	// LoadMultiplier smooths load steps on schedule and empty replies.
	LoadMultiplier float64 `json:"loadMultiplier"`
	// ExpectedDelay is a smoothed turnaround estimate in seconds.
	ExpectedDelay float64 `json:"expectedDelay"`

	PriceHist *Ring `json:"priceHist,omitempty"`
	DiffHist  *Ring `json:"diffHist,omitempty"`
	SchedHist *Ring `json:"schedHist,omitempty"`

	SchedCount int `json:"schedCount"`
	DoneCount  int `json:"doneCount"`

	LastSeen    time.Time `json:"lastSeen"`
	OwnerServer string    `json:"ownerServer"`
}

func (r *ResourceStatus) InGroup(group string) bool {
	for _, g := range r.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (r *ResourceStatus) HasRuntimeEnv(name string) bool {
	for _, re := range r.RuntimeEnvs {
		if re == name {
			return true
		}
	}
	return false
}

func (r *ResourceStatus) clone() *ResourceStatus {
	clone := *r
	clone.Groups = append([]string{}, r.Groups...)
	clone.RuntimeEnvs = append([]string{}, r.RuntimeEnvs...)
	clone.PriceHist = r.PriceHist.clone()
	clone.DiffHist = r.DiffHist.clone()
	clone.SchedHist = r.SchedHist.clone()
	return &clone
}

// UserStatus is the scheduler's view of one submitter identity.
type UserStatus struct {
	ID         string      `json:"id"`
	QueueHist  *SampleRing `json:"queueHist,omitempty"`
	DoneHist   *SampleRing `json:"doneHist,omitempty"`
	QueueCount int         `json:"queueCount"`
	DoneCount  int         `json:"doneCount"`

	LastSeen    time.Time `json:"lastSeen"`
	OwnerServer string    `json:"ownerServer"`
}

func (u *UserStatus) clone() *UserStatus {
	clone := *u
	clone.QueueHist = u.QueueHist.clone()
	clone.DoneHist = u.DoneHist.clone()
	return &clone
}

// ServerStatus describes one server of the federation as seen from here.
// Distance, MigrateCost and NextHop accumulate hop by hop as snapshots
// propagate through the peer graph.
type ServerStatus struct {
	ID          string    `json:"id"`
	QueueLength int       `json:"queueLength"`
	Distance    int       `json:"distance"`
	MigrateCost float64   `json:"migrateCost"`
	NextHop     string    `json:"nextHop,omitempty"`
	LastSeen    time.Time `json:"lastSeen"`
}

func (s *ServerStatus) clone() *ServerStatus {
	clone := *s
	return &clone
}

// SnapshotData is the triple exchanged between peers, plus quarantine notices
// so owners learn about dead-lettered jobs.
type SnapshotData struct {
	Servers   map[string]*ServerStatus   `json:"servers"`
	Resources map[string]*ResourceStatus `json:"resources"`
	Users     map[string]*UserStatus     `json:"users"`

	DeadLetters []job.DeadLetter `json:"deadLetters,omitempty"`
}
