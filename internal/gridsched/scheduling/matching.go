// Package scheduling holds the pure scheduling policy: hard compatibility
// matching, fitness scoring, pricing, migration marking and return routing.
// All state lives in the job queue and info store owned by the server.
package scheduling

import (
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
)

// Fits reports whether a job passes hard compatibility with a resource.
// An empty architecture or group on the job side matches anything.
func Fits(j *job.Job, res *infostore.ResourceStatus) bool {
	if j.Architecture != "" && j.Architecture != res.Architecture {
		return false
	}
	if j.CPUCount > res.CPUCount {
		return false
	}
	if j.NodeCount > res.NodeCount {
		return false
	}
	if j.Memory > res.Memory {
		return false
	}
	if j.Disk > res.Disk {
		return false
	}
	if j.CPUTime > res.LastCPUTime {
		return false
	}
	for _, re := range j.RuntimeEnvs {
		if !res.HasRuntimeEnv(re) {
			return false
		}
	}
	if j.VGrid != "" && !res.InGroup(j.VGrid) {
		return false
	}
	if j.MaxPrice < res.CurPrice {
		return false
	}
	return true
}
