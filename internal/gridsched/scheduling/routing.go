package scheduling

import (
	"github.com/vgrid/gridsched/internal/gridsched/infostore"
)

// UserDirection returns the direct peer a finished job should be pushed to
// on its way back to the given user's server, or "" when the job should stay
// here. Snapshot ingestion keeps only the cheapest known path per server, so
// the stored next hop already minimises link cost plus remote user cost.
func UserDirection(store *infostore.Store, userID string) string {
	user, ok := store.User(userID)
	if !ok {
		// Nobody claims the user yet; keep the job until a snapshot does.
		return ""
	}
	if user.OwnerServer == store.SelfID() {
		return ""
	}
	return store.Direction(user.OwnerServer)
}
