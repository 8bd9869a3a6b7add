package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"

	"github.com/vgrid/gridsched/internal/gridsched/infostore"
	"github.com/vgrid/gridsched/internal/gridsched/job"
)

const (
	jobsPath    = "/v1/jobs"
	resultsPath = "/v1/results"
	statusPath  = "/v1/status"
)

// HTTPLink talks to a peer's HTTP API. Transient failures are retried once
// within the call deadline; anything that still fails surfaces as a
// retryable error to the tick.
type HTTPLink struct {
	baseUrl string
	client  *http.Client
}

func NewHTTPLink(baseUrl string) *HTTPLink {
	return &HTTPLink{
		baseUrl: baseUrl,
		client:  &http.Client{},
	}
}

func (l *HTTPLink) PushJob(ctx context.Context, j *job.Job) error {
	return l.post(ctx, jobsPath, j)
}

func (l *HTTPLink) PushResult(ctx context.Context, j *job.Job) error {
	return l.post(ctx, resultsPath, j)
}

func (l *HTTPLink) Snapshot(ctx context.Context) (infostore.SnapshotData, error) {
	var snap infostore.SnapshotData
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseUrl+statusPath, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := l.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return errors.Errorf("snapshot from %s: unexpected status %d", l.baseUrl, resp.StatusCode)
			}
			return json.NewDecoder(resp.Body).Decode(&snap)
		},
		retry.Attempts(2),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return infostore.SnapshotData{}, errors.Wrapf(err, "snapshot from %s failed", l.baseUrl)
	}
	return snap, nil
}

func (l *HTTPLink) post(ctx context.Context, path string, j *job.Job) error {
	body, err := json.Marshal(j)
	if err != nil {
		return errors.WithStack(err)
	}
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseUrl+path, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := l.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)
			if resp.StatusCode != http.StatusOK {
				return errors.Errorf("push to %s%s: unexpected status %d", l.baseUrl, path, resp.StatusCode)
			}
			return nil
		},
		retry.Attempts(2),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	return errors.Wrapf(err, "push to %s%s failed", l.baseUrl, path)
}
