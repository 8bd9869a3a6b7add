package scheduling

import (
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
	"github.com/vgrid/gridsched/internal/gridsched/jobqueue"
)

// MarkMigrations walks the queue and hints jobs toward peers where their
// best fitness, already discounted by migration cost, strictly beats the
// best local fitness by the configured margin. At most budget jobs are
// hinted. Returns the number of newly hinted jobs.
func MarkMigrations(q *jobqueue.Queue, store *infostore.Store, now time.Time, cfg configuration.SchedulingConfig, budget int) int {
	resources := store.Resources()
	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })

	marked := 0
	for _, j := range q.Jobs() {
		if marked >= budget {
			break
		}
		if !j.Hint.None() {
			continue
		}

		bestLocal := math.Inf(-1)
		bestRemote := math.Inf(-1)
		var bestRemoteRes *infostore.ResourceStatus
		for _, res := range resources {
			if !Fits(j, res) {
				continue
			}
			fitness := Fitness(j, res, store, now, cfg)
			if res.OwnerServer == store.SelfID() {
				if fitness > bestLocal {
					bestLocal = fitness
				}
			} else if fitness > bestRemote {
				bestRemote = fitness
				bestRemoteRes = res
			}
		}

		if bestRemoteRes == nil || bestRemote <= bestLocal+cfg.MigrateMargin {
			continue
		}
		direction := store.Direction(bestRemoteRes.OwnerServer)
		if direction == "" {
			continue
		}
		j.Hint = job.MigrateTo(direction)
		marked++
		log.WithFields(log.Fields{
			"jobId":    j.ID,
			"peer":     direction,
			"resource": bestRemoteRes.ID,
		}).Info("marked job for migration")
	}
	return marked
}

// ExpireJobs sweeps jobs that have waited longer than the expiry age out of
// the queue. Expiry disabled means no sweep.
func ExpireJobs(q *jobqueue.Queue, now time.Time, cfg configuration.SchedulingConfig) []*job.Job {
	if cfg.ExpireAfter <= 0 {
		return nil
	}
	var expired []*job.Job
	// Walk from the back so removal does not shift pending indexes.
	for i := q.Len() - 1; i >= 0; i-- {
		j, err := q.Get(i)
		if err != nil {
			continue
		}
		if now.Sub(j.QueuedAt) > cfg.ExpireAfter {
			if removed, err := q.Dequeue(i); err == nil {
				expired = append(expired, removed)
			}
		}
	}
	return expired
}
