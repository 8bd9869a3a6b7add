package server

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/vgrid/gridsched/internal/gridsched/job"
	"github.com/vgrid/gridsched/internal/gridsched/metrics"
	"github.com/vgrid/gridsched/internal/gridsched/scheduling"
)

type pushItem struct {
	j *job.Job
	p *Peer
}

// Tick runs one scheduler pass: forward hinted jobs to peers, route finished
// jobs one hop toward their owners, then refresh peer status. The whole pass
// runs under the configured wall-clock budget; work that does not fit is
// deferred to the next tick, never dropped. Peer transport failures are
// aggregated and returned; they are retryable by construction.
func (s *Server) Tick(parent context.Context) error {
	start := time.Now()
	defer func() {
		metrics.TickDuration.WithLabelValues(s.id).Observe(time.Since(start).Seconds())
	}()
	ctx, cancel := context.WithTimeout(parent, s.cfg.TickBudget)
	defer cancel()

	var result *multierror.Error
	migrated, err := s.migratePhase(ctx)
	if err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.returnPhase(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.refreshPhase(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	s.mu.Lock()
	now := s.clock.Now()
	if budget := s.cfg.MigrateLimit - migrated; budget > 0 {
		scheduling.MarkMigrations(s.queue, s.store, now, s.cfg, budget)
	}
	s.store.UpsertSelf(s.queue.Len(), now)
	s.store.Expire(now)
	metrics.QueueLength.WithLabelValues(s.id).Set(float64(s.queue.Len()))
	metrics.DoneQueueLength.WithLabelValues(s.id).Set(float64(s.done.Len()))
	s.mu.Unlock()

	return result.ErrorOrNil()
}

// migratePhase forwards queued jobs carrying a schedule hint. Returns how
// many jobs actually changed location so hint marking shares the per-tick
// migration budget.
func (s *Server) migratePhase(ctx context.Context) (int, error) {
	s.mu.Lock()
	now := s.clock.Now()
	for _, expired := range scheduling.ExpireJobs(s.queue, now, s.cfg) {
		s.quarantineLocked(expired, "expired", now)
	}

	var pushes []pushItem
	for _, j := range s.queue.Jobs() {
		if len(pushes) >= s.cfg.MigrateLimit {
			break
		}
		if j.Hint.None() {
			continue
		}
		p, ok := s.peers[j.Hint.Peer]
		if !ok {
			// Hint pointing at a peer we do not link to; recompute next tick.
			j.Hint = job.NoHint()
			j.MigrateAttempts = 0
			continue
		}
		pushes = append(pushes, pushItem{j: j, p: p})
	}
	for _, item := range pushes {
		s.queue.DequeueByID(item.j.ID)
	}
	s.mu.Unlock()

	migrated := 0
	var result *multierror.Error
	var failed []pushItem
	for _, item := range pushes {
		if ctx.Err() != nil {
			failed = append(failed, item)
			continue
		}
		wire := *item.j
		wire.MigrateCount++
		wire.Hint = job.NoHint()
		wire.MigrateAttempts = 0
		pushCtx, cancel := context.WithTimeout(ctx, s.cfg.PushTimeout)
		err := item.p.Link.PushJob(pushCtx, &wire)
		cancel()
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"jobId": item.j.ID, "peer": item.p.ID}).Warn("job migration failed")
			result = multierror.Append(result, err)
			failed = append(failed, item)
			continue
		}
		migrated++
		metrics.JobsMigrated.WithLabelValues(s.id, item.p.ID).Inc()
	}

	if len(failed) > 0 {
		s.mu.Lock()
		for _, item := range failed {
			item.j.MigrateAttempts++
			if item.j.MigrateAttempts >= s.cfg.MaxMigrateAttempts {
				item.j.Hint = job.NoHint()
				item.j.MigrateAttempts = 0
			}
			if err := s.queue.Enqueue(item.j); err != nil {
				log.WithError(err).WithField("jobId", item.j.ID).Error("failed to requeue job after push failure")
			}
		}
		s.mu.Unlock()
	}
	return migrated, result.ErrorOrNil()
}

// returnPhase walks the done queue and pushes each finished job one hop
// closer to its owner. Jobs with no known next hop stay and are retried.
func (s *Server) returnPhase(ctx context.Context) error {
	s.mu.Lock()
	now := s.clock.Now()
	var pushes []pushItem
	for _, j := range s.done.Jobs() {
		if len(pushes) >= s.cfg.MigrateLimit {
			break
		}
		if j.State != job.DoneLocal {
			continue
		}
		direction := scheduling.UserDirection(s.store, j.Owner)
		if direction == "" {
			s.maybeDeliverLocked(j, now)
			continue
		}
		p, ok := s.peers[direction]
		if !ok {
			continue
		}
		pushes = append(pushes, pushItem{j: j, p: p})
	}
	for _, item := range pushes {
		s.done.DequeueByID(item.j.ID)
	}
	s.mu.Unlock()

	var result *multierror.Error
	var failed []pushItem
	for _, item := range pushes {
		if ctx.Err() != nil {
			failed = append(failed, item)
			continue
		}
		wire := *item.j
		pushCtx, cancel := context.WithTimeout(ctx, s.cfg.PushTimeout)
		err := item.p.Link.PushResult(pushCtx, &wire)
		cancel()
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"jobId": item.j.ID, "peer": item.p.ID}).Warn("result return failed")
			result = multierror.Append(result, err)
			failed = append(failed, item)
			continue
		}
		metrics.JobsReturned.WithLabelValues(s.id, item.p.ID).Inc()
	}

	if len(failed) > 0 {
		s.mu.Lock()
		for _, item := range failed {
			if err := s.done.Enqueue(item.j); err != nil {
				log.WithError(err).WithField("jobId", item.j.ID).Error("failed to requeue finished job")
			}
		}
		s.mu.Unlock()
	}
	return result.ErrorOrNil()
}

// refreshPhase folds every peer's snapshot into the info store. Own status
// is published implicitly: peers pull it the same way.
func (s *Server) refreshPhase(ctx context.Context) error {
	var result *multierror.Error
	for _, id := range s.peerIDs {
		p := s.peers[id]
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		snapCtx, cancel := context.WithTimeout(ctx, s.cfg.SnapshotTimeout)
		snap, err := p.Link.Snapshot(snapCtx)
		cancel()
		if err != nil {
			log.WithError(err).WithField("peer", id).Warn("peer snapshot failed")
			result = multierror.Append(result, err)
			continue
		}

		s.mu.Lock()
		now := s.clock.Now()
		s.store.ReplacePeerSnapshot(id, p.MigrateCost, snap, now)
		for _, dl := range snap.DeadLetters {
			if user, ok := s.store.User(dl.Job.Owner); ok && user.OwnerServer == s.id {
				log.WithFields(log.Fields{
					"jobId":  dl.Job.ID,
					"owner":  dl.Job.Owner,
					"server": dl.Server,
					"reason": dl.Reason,
				}).Warn("peer quarantined a job owned by a local user")
			}
		}
		s.mu.Unlock()
	}
	return result.ErrorOrNil()
}
