package scheduling

import (
	"time"

	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
	"github.com/vgrid/gridsched/internal/gridsched/jobqueue"
)

// Shared fixtures for the scheduling tests.

var t0 = time.Unix(1000000, 0)

func testConfig() configuration.SchedulingConfig {
	return configuration.DefaultSchedulingConfig()
}

func newStore(expireAfter time.Duration) *infostore.Store {
	return infostore.NewStore("A", expireAfter)
}

func localResource(s *infostore.Store, id string, minPrice float64, now time.Time) *infostore.ResourceStatus {
	return s.UpsertResource(infostore.ResourceSpec{
		ResourceID:   id,
		CPUTime:      3600,
		MinPrice:     minPrice,
		Group:        "science",
		Architecture: "X86",
		CPUCount:     8,
		NodeCount:    4,
		Memory:       4096,
		Disk:         8192,
		RuntimeEnvs:  []string{"PYTHON3"},
	}, now)
}

// remoteResource injects a resource owned by a remote server, reachable at
// the given link cost, the same way a peer snapshot would.
func remoteResource(s *infostore.Store, serverID, resID string, curPrice, linkCost float64, now time.Time) *infostore.ResourceStatus {
	snap := infostore.SnapshotData{
		Servers: map[string]*infostore.ServerStatus{
			serverID: {ID: serverID, LastSeen: now},
		},
		Resources: map[string]*infostore.ResourceStatus{
			resID: {
				ID:           resID,
				MinPrice:     curPrice,
				CurPrice:     curPrice,
				LastCPUTime:  3600,
				Groups:       []string{"science"},
				Architecture: "X86",
				CPUCount:     8,
				NodeCount:    4,
				Memory:       4096,
				Disk:         8192,
				RuntimeEnvs:  []string{"PYTHON3"},
				OwnerServer:  serverID,
				LastSeen:     now,
			},
		},
		Users: map[string]*infostore.UserStatus{},
	}
	s.ReplacePeerSnapshot(serverID, linkCost, snap, now)
	res, _ := s.Resource(resID)
	return res
}

func queuedJob(id string, maxPrice float64, queuedAt time.Time) *job.Job {
	j := job.New("alice", id, job.Spec{
		CPUTime:      60,
		CPUCount:     1,
		NodeCount:    1,
		Memory:       512,
		Disk:         512,
		Architecture: "X86",
		VGrid:        "science",
		MaxPrice:     maxPrice,
	}, queuedAt)
	return j
}

func queueOf(jobs ...*job.Job) *jobqueue.Queue {
	q := jobqueue.New()
	for _, j := range jobs {
		if err := q.Enqueue(j); err != nil {
			panic(err)
		}
	}
	return q
}
