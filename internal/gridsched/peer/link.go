// Package peer provides transports to peer servers. Every link exposes
// exactly three idempotent-at-message-level operations; ordering between
// them is not guaranteed and duplicate delivery is possible.
package peer

import (
	"context"

	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
)

// Link is the abstract transport to one peer server. Transport failures are
// retryable: the server tick simply tries again next tick.
type Link interface {
	PushJob(ctx context.Context, j *job.Job) error
	PushResult(ctx context.Context, j *job.Job) error
	Snapshot(ctx context.Context) (infostore.SnapshotData, error)
}

// Node is the receiving side of a link, implemented by a server.
type Node interface {
	ReceiveJob(j *job.Job) error
	ReceiveResult(j *job.Job) error
	SnapshotStatus() infostore.SnapshotData
}

// InProcessLink connects servers living in the same process, used by tests
// and single-binary federations.
type InProcessLink struct {
	target Node
}

func NewInProcessLink(target Node) *InProcessLink {
	return &InProcessLink{target: target}
}

func (l *InProcessLink) PushJob(ctx context.Context, j *job.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.target.ReceiveJob(j)
}

func (l *InProcessLink) PushResult(ctx context.Context, j *job.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.target.ReceiveResult(j)
}

func (l *InProcessLink) Snapshot(ctx context.Context) (infostore.SnapshotData, error) {
	if err := ctx.Err(); err != nil {
		return infostore.SnapshotData{}, err
	}
	return l.target.SnapshotStatus(), nil
}
