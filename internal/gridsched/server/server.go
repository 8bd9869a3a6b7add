// Package server implements one node of the federated scheduler. A server
// owns a job queue, a done queue and an info store; all state mutation is
// serialised so every operation is atomic with respect to the others, and
// peer transports are only awaited between mutations.
package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vgrid/gridsched/internal/common/util"
	"github.com/vgrid/gridsched/internal/gridsched/configuration"
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
	"github.com/vgrid/gridsched/internal/gridsched/jobqueue"
	"github.com/vgrid/gridsched/internal/gridsched/metrics"
	"github.com/vgrid/gridsched/internal/gridsched/peer"
	"github.com/vgrid/gridsched/internal/gridsched/scheduling"
)

const deadLetterBacklog = 100

// Peer couples a transport with its static link cost.
type Peer struct {
	ID          string
	Link        peer.Link
	MigrateCost float64
}

type Server struct {
	mu    sync.Mutex
	id    string
	cfg   configuration.SchedulingConfig
	clock util.Clock

	queue *jobqueue.Queue
	done  *jobqueue.Queue
	store *infostore.Store

	peers   map[string]*Peer
	peerIDs []string

	jobSeq      uint64
	deadLetters []job.DeadLetter
}

func New(id string, cfg configuration.SchedulingConfig, clock util.Clock) *Server {
	return &Server{
		id:    id,
		cfg:   cfg,
		clock: clock,
		queue: jobqueue.New(),
		done:  jobqueue.New(),
		store: infostore.NewStore(id, cfg.ExpireAfter),
		peers: map[string]*Peer{},
	}
}

func (s *Server) ID() string { return s.id }

// AddPeer registers a statically configured peer link. Peers are never
// removed while the server runs.
func (s *Server) AddPeer(id string, link peer.Link, migrateCost float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if migrateCost <= 0 {
		migrateCost = s.cfg.MigrateCostDefault
	}
	s.peers[id] = &Peer{ID: id, Link: link, MigrateCost: migrateCost}
	s.peerIDs = append(s.peerIDs, id)
	sort.Strings(s.peerIDs)
}

// Submit assigns a fresh job id, queues the job and registers the owner.
func (s *Server) Submit(owner string, spec job.Spec) (string, error) {
	if owner == "" {
		return "", &ErrInvalidInput{Field: "owner", Message: "must not be empty"}
	}
	if spec.CPUTime <= 0 {
		return "", &ErrInvalidInput{Field: "cpuTime", Message: "must be positive"}
	}
	if spec.MaxPrice < 0 {
		return "", &ErrInvalidInput{Field: "maxPrice", Message: "must not be negative"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.QueueCap > 0 && s.queue.Len() >= s.cfg.QueueCap {
		return "", &ErrQueueFull{Cap: s.cfg.QueueCap}
	}

	now := s.clock.Now()
	s.jobSeq++
	// Zero padded so lexicographic id order matches submission order.
	id := fmt.Sprintf("%s-%010d", s.id, s.jobSeq)
	j := job.New(owner, id, spec, now)
	if err := s.queue.Enqueue(j); err != nil {
		return "", err
	}

	user := s.store.UpsertUser(owner, now)
	user.QueueHist.Push(infostore.JobSample{JobID: id, At: now})
	user.QueueCount++

	metrics.JobsSubmitted.WithLabelValues(s.id).Inc()
	metrics.QueueLength.WithLabelValues(s.id).Set(float64(s.queue.Len()))
	log.WithFields(log.Fields{"jobId": id, "owner": owner}).Info("accepted job")
	return id, nil
}

// Request registers or refreshes the resource and asks the scheduler for one
// job. The reply is never an error for peer trouble; at worst it is the
// empty job.
func (s *Server) Request(spec infostore.ResourceSpec) (*job.Job, error) {
	if spec.ResourceID == "" {
		return nil, &ErrInvalidInput{Field: "resourceId", Message: "must not be empty"}
	}
	if spec.MinPrice < 0 {
		return nil, &ErrInvalidInput{Field: "minPrice", Message: "must not be negative"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	res := s.store.UpsertResource(spec, now)
	scheduled := scheduling.Schedule(s.queue, s.store, res, now, s.cfg)
	scheduling.UpdatePrice(res, s.cfg)
	metrics.ResourcePrice.WithLabelValues(s.id, res.ID).Set(res.CurPrice)
	metrics.QueueLength.WithLabelValues(s.id).Set(float64(s.queue.Len()))

	if scheduled == nil {
		metrics.EmptyReplies.WithLabelValues(s.id).Inc()
		return job.Empty(spec.ResourceID, s.cfg.SleepCPUTime), nil
	}
	scheduled.SessionID = uuid.NewString()
	metrics.JobsScheduled.WithLabelValues(s.id).Inc()
	return scheduled, nil
}

// ReturnFinished conveys an execution outcome from a local resource. The
// finished job enters the done queue and is routed back to its owner over
// the following ticks.
func (s *Server) ReturnFinished(resourceID string, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	if j.ExecutingAt.IsZero() || j.AssignedResource != resourceID {
		err := &ErrConsistency{JobID: j.ID, Message: "finish reported for a job this resource is not executing"}
		s.quarantineLocked(j, err.Message, now)
		return err
	}
	if s.done.Contains(j.Key()) {
		return nil
	}

	if res, ok := s.store.Resource(resourceID); ok {
		scheduling.RecordDelay(res, now.Sub(j.ExecutingAt).Seconds())
		res.DoneCount++
	}

	j.State = job.DoneLocal
	j.VisitedServers = append(j.VisitedServers, s.id)
	if err := s.done.Enqueue(j); err != nil {
		return err
	}
	s.maybeDeliverLocked(j, now)
	metrics.DoneQueueLength.WithLabelValues(s.id).Set(float64(s.done.Len()))
	return nil
}

// ReceiveJob accepts a job migrated from a peer. Duplicate delivery is
// absorbed via the (owner, id) identity.
func (s *Server) ReceiveJob(j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.QueueCap > 0 && s.queue.Len() >= s.cfg.QueueCap {
		return &ErrQueueFull{Cap: s.cfg.QueueCap}
	}
	now := s.clock.Now()
	j.QueuedAt = now
	j.Hint = job.NoHint()
	j.MigrateAttempts = 0
	j.State = job.Submitted
	if err := s.queue.Enqueue(j); err != nil {
		if _, ok := err.(*jobqueue.ErrDuplicateJobID); ok {
			log.WithField("jobId", j.ID).Debug("ignoring duplicate migrated job")
			return nil
		}
		return err
	}
	metrics.QueueLength.WithLabelValues(s.id).Set(float64(s.queue.Len()))
	log.WithFields(log.Fields{"jobId": j.ID, "migrateCount": j.MigrateCount}).Info("received migrated job")
	return nil
}

// ReceiveResult accepts a finished job pushed back by a peer. A job that has
// already passed through this server is in a routing loop and is
// quarantined.
func (s *Server) ReceiveResult(j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if s.done.Contains(j.Key()) {
		log.WithField("jobId", j.ID).Debug("ignoring duplicate result")
		return nil
	}
	if j.Visited(s.id) {
		s.quarantineLocked(j, "return-route loop", now)
		return nil
	}
	j.VisitedServers = append(j.VisitedServers, s.id)
	j.State = job.DoneLocal
	if err := s.done.Enqueue(j); err != nil {
		return err
	}
	s.maybeDeliverLocked(j, now)
	metrics.DoneQueueLength.WithLabelValues(s.id).Set(float64(s.done.Len()))
	return nil
}

// SnapshotStatus returns the read-only view peers pull, including this
// server's own status line and recent quarantine notices.
func (s *Server) SnapshotStatus() infostore.SnapshotData {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.UpsertSelf(s.queue.Len(), s.clock.Now())
	snap := s.store.Snapshot()
	if len(s.deadLetters) > 0 {
		snap.DeadLetters = append([]job.DeadLetter{}, s.deadLetters...)
	}
	return snap
}

// DeadLetters returns the quarantine record.
func (s *Server) DeadLetters() []job.DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]job.DeadLetter{}, s.deadLetters...)
}

// QueueLen and DoneLen expose queue sizes for tests and monitoring.
func (s *Server) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Server) DoneLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done.Len()
}

// DoneJob looks up a finished job by id.
func (s *Server) DoneJob(id string) (*job.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.done.GetByID(id)
	return j, err == nil
}

// QueuedJob looks up a queued job by id.
func (s *Server) QueuedJob(id string) (*job.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.queue.GetByID(id)
	return j, err == nil
}

// maybeDeliverLocked marks a finished job delivered when its owner is a
// local user and folds it into the owner's done history.
func (s *Server) maybeDeliverLocked(j *job.Job, now time.Time) {
	user, ok := s.store.User(j.Owner)
	if !ok || user.OwnerServer != s.id {
		return
	}
	j.State = job.DoneDelivered
	delay := 0.0
	if !j.ExecutingAt.IsZero() {
		delay = now.Sub(j.ExecutingAt).Seconds()
	}
	user.DoneHist.Push(infostore.JobSample{
		JobID: j.ID,
		Paid:  j.ExecPrice,
		Delay: delay,
		Dist:  j.MigrateCount,
		At:    now,
	})
	user.DoneCount++
	log.WithFields(log.Fields{"jobId": j.ID, "owner": j.Owner}).Info("delivered finished job to owner")
}

func (s *Server) quarantineLocked(j *job.Job, reason string, now time.Time) {
	s.queue.DequeueByID(j.ID)
	s.done.DequeueByID(j.ID)
	s.deadLetters = append(s.deadLetters, job.DeadLetter{
		Job:    *j,
		Reason: reason,
		Server: s.id,
		At:     now,
	})
	if len(s.deadLetters) > deadLetterBacklog {
		s.deadLetters = s.deadLetters[len(s.deadLetters)-deadLetterBacklog:]
	}
	metrics.JobsQuarantined.WithLabelValues(s.id, reason).Inc()
	log.WithFields(log.Fields{"jobId": j.ID, "reason": reason}).Warn("quarantined job")
}
