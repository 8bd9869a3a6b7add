package peer

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vgrid/gridsched/internal/gridsched/job"
)

// NewHandler exposes a node's receiving side over HTTP. Receivers
// deduplicate on (owner, job id), so replayed pushes answer 200.
func NewHandler(node Node) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(jobsPath, func(w http.ResponseWriter, r *http.Request) {
		receive(w, r, node.ReceiveJob)
	})
	mux.HandleFunc(resultsPath, func(w http.ResponseWriter, r *http.Request) {
		receive(w, r, node.ReceiveResult)
	})
	mux.HandleFunc(statusPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(node.SnapshotStatus()); err != nil {
			log.WithError(err).Error("failed to encode status snapshot")
		}
	})
	return mux
}

func receive(w http.ResponseWriter, r *http.Request, deliver func(*job.Job) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var j job.Job
	if err := json.NewDecoder(r.Body).Decode(&j); err != nil {
		http.Error(w, "malformed job record", http.StatusBadRequest)
		return
	}
	if err := deliver(&j); err != nil {
		log.WithError(err).WithField("jobId", j.ID).Warn("rejected pushed job")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}
