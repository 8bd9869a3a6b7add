package scheduling

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
	"github.com/vgrid/gridsched/internal/gridsched/jobqueue"
)

// Schedule picks the queued job with the highest fitness for the requesting
// resource, stamps its execution metadata, removes it from the queue and
// records the paid price. A nil return means no eligible job; the resource
// load has already been stepped down in that case.
func Schedule(q *jobqueue.Queue, store *infostore.Store, res *infostore.ResourceStatus, now time.Time, cfg configuration.SchedulingConfig) *job.Job {
	var best *job.Job
	var bestFitness float64
	for _, j := range q.Jobs() {
		if !Fits(j, res) {
			continue
		}
		fitness := Fitness(j, res, store, now, cfg)
		if better(fitness, j, bestFitness, best) {
			best = j
			bestFitness = fitness
		}
	}

	if best == nil {
		res.SchedHist.Push(0)
		StepLoadDown(res)
		return nil
	}

	best.ExecutingAt = now
	best.ExecPrice = res.CurPrice
	best.ExecRawDiff = best.MaxPrice - res.CurPrice
	best.AssignedResource = res.ID
	best.State = job.Executing
	if _, err := q.DequeueByID(best.ID); err != nil {
		log.WithError(err).WithField("jobId", best.ID).Error("scheduled job vanished from queue")
	}

	res.PriceHist.Push(best.ExecPrice)
	res.DiffHist.Push(best.ExecRawDiff)
	res.SchedHist.Push(1)
	res.SchedCount++
	StepLoadUp(res)

	log.WithFields(log.Fields{
		"jobId":    best.ID,
		"resource": res.ID,
		"price":    best.ExecPrice,
		"fitness":  bestFitness,
	}).Info("scheduled job")
	return best
}
