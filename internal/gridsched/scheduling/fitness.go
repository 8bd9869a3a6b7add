package scheduling

import (
	"math"
	"time"

	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
)

// thrashingWeight linearly penalises jobs that already migrated so they do
// not bounce between servers.
const thrashingWeight = 2.0

// Fitness ranks a job for execution on a resource. Higher wins. The score
// combines price headroom, a penalty for remote resources and either a pure
// age term (expiry disabled) or an expiry-risk term that dominates as the job
// nears its expiry deadline.
func Fitness(j *job.Job, res *infostore.ResourceStatus, store *infostore.Store, now time.Time, cfg configuration.SchedulingConfig) float64 {
	fitness := j.MaxPrice - res.CurPrice
	fitness -= migratePenalty(j, res, store)

	wait := now.Sub(j.QueuedAt).Seconds()
	if cfg.ExpireAfter <= 0 {
		fitness += cfg.AgeMult * wait
	} else {
		expire := cfg.ExpireAfter.Seconds()
		fitness += cfg.ExpireMult * (1 - math.Abs(expire-wait)/expire)
	}
	return fitness
}

func migratePenalty(j *job.Job, res *infostore.ResourceStatus, store *infostore.Store) float64 {
	if res.OwnerServer == store.SelfID() {
		return 0
	}
	cost, distance, ok := store.MigrateCost(res.OwnerServer)
	if !ok {
		// Resource owned by a server we no longer know; make it
		// unattractive until the next refresh sorts it out.
		return math.Inf(1)
	}
	return cost + thrashingWeight*float64(j.MigrateCount+distance)
}

// better reports whether candidate beats current under the deterministic
// ordering: fitness, then earliest queue entry, then lexicographic id.
func better(candidateFitness float64, candidate *job.Job, currentFitness float64, current *job.Job) bool {
	if current == nil {
		return true
	}
	if candidateFitness != currentFitness {
		return candidateFitness > currentFitness
	}
	if !candidate.QueuedAt.Equal(current.QueuedAt) {
		return candidate.QueuedAt.Before(current.QueuedAt)
	}
	return candidate.ID < current.ID
}
