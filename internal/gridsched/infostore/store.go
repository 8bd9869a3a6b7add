// Package infostore keeps the process-local view of users, resources and
// peer servers, ages stale entries out and folds peer snapshots in.
package infostore

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Store holds three maps keyed by id. Writers are serialised by the owning
// server actor; the store's own lock guards map restructuring so snapshots
// are internally consistent.
type Store struct {
	mu          sync.Mutex
	selfID      string
	expireAfter time.Duration

	servers   map[string]*ServerStatus
	resources map[string]*ResourceStatus
	users     map[string]*UserStatus
}

func NewStore(selfID string, expireAfter time.Duration) *Store {
	s := &Store{
		selfID:      selfID,
		expireAfter: expireAfter,
		servers:     map[string]*ServerStatus{},
		resources:   map[string]*ResourceStatus{},
		users:       map[string]*UserStatus{},
	}
	s.servers[selfID] = &ServerStatus{ID: selfID}
	return s
}

func (s *Store) SelfID() string { return s.selfID }

// UpsertSelf refreshes the local server entry published to peers.
func (s *Store) UpsertSelf(queueLength int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[s.selfID] = &ServerStatus{
		ID:          s.selfID,
		QueueLength: queueLength,
		Distance:    0,
		MigrateCost: 0,
		LastSeen:    now,
	}
}

// UpsertResource merges the declared spec into the resource entry, creating
// it with fresh histories on first sighting.
func (s *Store) UpsertResource(spec ResourceSpec, now time.Time) *ResourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.resources[spec.ResourceID]
	if !ok {
		res = &ResourceStatus{
			ID:             spec.ResourceID,
			CurPrice:       spec.MinPrice,
			LoadMultiplier: defaultLoadMultiplier,
			PriceHist:      NewRing(resourceBacklog),
			DiffHist:       NewRing(resourceBacklog),
			SchedHist:      NewRing(resourceBacklog),
			OwnerServer:    s.selfID,
		}
		s.resources[spec.ResourceID] = res
		log.WithField("resource", spec.ResourceID).Info("registered new resource")
	}
	res.MinPrice = spec.MinPrice
	res.LastCPUTime = spec.CPUTime
	res.Architecture = spec.Architecture
	res.CPUCount = spec.CPUCount
	res.NodeCount = spec.NodeCount
	res.Memory = spec.Memory
	res.Disk = spec.Disk
	res.RuntimeEnvs = spec.RuntimeEnvs
	if spec.Group != "" && !res.InGroup(spec.Group) {
		res.Groups = append(res.Groups, spec.Group)
	}
	if res.CurPrice < res.MinPrice {
		res.CurPrice = res.MinPrice
	}
	res.LastSeen = now
	res.OwnerServer = s.selfID
	return res
}

// UpsertUser refreshes the user entry, creating it on first sighting.
func (s *Store) UpsertUser(id string, now time.Time) *UserStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		user = &UserStatus{
			ID:        id,
			QueueHist: NewSampleRing(userBacklog),
			DoneHist:  NewSampleRing(userBacklog),
		}
		s.users[id] = user
		log.WithField("user", id).Info("registered new user")
	}
	user.LastSeen = now
	user.OwnerServer = s.selfID
	return user
}

func (s *Store) Resource(id string) (*ResourceStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.resources[id]
	return res, ok
}

func (s *Store) User(id string) (*UserStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	return user, ok
}

func (s *Store) Server(id string) (*ServerStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[id]
	return srv, ok
}

// Resources returns all known resource entries, local and remote.
func (s *Store) Resources() []*ResourceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ResourceStatus, 0, len(s.resources))
	for _, res := range s.resources {
		out = append(out, res)
	}
	return out
}

// MigrateCost returns the accumulated migration cost and hop distance to a
// server.
func (s *Store) MigrateCost(serverID string) (cost float64, distance int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok {
		return 0, 0, false
	}
	return srv.MigrateCost, srv.Distance, true
}

// Direction returns the direct peer to go through to reach the given server,
// or "" when the server is local or unknown.
func (s *Store) Direction(serverID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	srv, ok := s.servers[serverID]
	if !ok || srv.Distance == 0 {
		return ""
	}
	return srv.NextHop
}

// Snapshot returns a deep copy of the three maps.
func (s *Store) Snapshot() SnapshotData {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SnapshotData{
		Servers:   make(map[string]*ServerStatus, len(s.servers)),
		Resources: make(map[string]*ResourceStatus, len(s.resources)),
		Users:     make(map[string]*UserStatus, len(s.users)),
	}
	for id, srv := range s.servers {
		snap.Servers[id] = srv.clone()
	}
	for id, res := range s.resources {
		snap.Resources[id] = res.clone()
	}
	for id, user := range s.users {
		snap.Users[id] = user.clone()
	}
	return snap
}

// Expire removes entries not seen for expireAfter, cascading server removal
// to the entities it owns. Disabled when expireAfter is zero.
func (s *Store) Expire(now time.Time) {
	if s.expireAfter <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, srv := range s.servers {
		if id == s.selfID {
			continue
		}
		if now.Sub(srv.LastSeen) > s.expireAfter {
			log.WithField("server", id).Info("dropping stale server status")
			delete(s.servers, id)
			s.pruneOwnedLocked(id, nil, nil)
		}
	}
	for id, res := range s.resources {
		if now.Sub(res.LastSeen) > s.expireAfter {
			log.WithField("resource", id).Info("dropping stale resource status")
			delete(s.resources, id)
		}
	}
	for id, user := range s.users {
		if now.Sub(user.LastSeen) > s.expireAfter {
			log.WithField("user", id).Info("dropping stale user status")
			delete(s.users, id)
		}
	}
}

// PruneFromPeer removes all resource and user entries owned by the given
// server, used when its snapshot no longer lists them.
func (s *Store) PruneFromPeer(serverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneOwnedLocked(serverID, nil, nil)
}

// pruneOwnedLocked drops entities owned by serverID that the keep sets do not
// mention. Nil keep sets drop everything owned by serverID.
func (s *Store) pruneOwnedLocked(serverID string, keepResources map[string]*ResourceStatus, keepUsers map[string]*UserStatus) {
	for id, res := range s.resources {
		if res.OwnerServer != serverID {
			continue
		}
		if _, keep := keepResources[id]; !keep {
			delete(s.resources, id)
		}
	}
	for id, user := range s.users {
		if user.OwnerServer != serverID {
			continue
		}
		if _, keep := keepUsers[id]; !keep {
			delete(s.users, id)
		}
	}
}

// ReplacePeerSnapshot folds one peer's snapshot in: the portion of the maps
// originating from servers reachable through that peer is replaced
// atomically. Costs and distances grow by the first hop, and a same or
// cheaper path wins over an existing dearer one.
func (s *Store) ReplacePeerSnapshot(peerID string, linkCost float64, snap SnapshotData, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for serverID, remote := range snap.Servers {
		if serverID == s.selfID {
			continue
		}
		adjusted := remote.clone()
		adjusted.Distance = remote.Distance + 1
		adjusted.MigrateCost = remote.MigrateCost + linkCost
		adjusted.NextHop = peerID

		if s.expireAfter > 0 && now.Sub(adjusted.LastSeen) > s.expireAfter {
			log.WithField("server", serverID).Debug("ignoring stale peer information")
			continue
		}
		if cur, ok := s.servers[serverID]; ok {
			if !adjusted.LastSeen.After(cur.LastSeen) {
				continue
			}
			if cur.MigrateCost < adjusted.MigrateCost {
				log.WithField("server", serverID).Debug("ignoring more expensive path")
				continue
			}
		}
		s.servers[serverID] = adjusted

		owned := ownedBy(serverID, snap)
		s.pruneOwnedLocked(serverID, owned.Resources, owned.Users)
		for id, res := range owned.Resources {
			if cur, ok := s.resources[id]; ok && !res.LastSeen.After(cur.LastSeen) {
				continue
			}
			s.resources[id] = res.clone()
		}
		for id, user := range owned.Users {
			if cur, ok := s.users[id]; ok && !user.LastSeen.After(cur.LastSeen) {
				continue
			}
			s.users[id] = user.clone()
		}
	}
}

func ownedBy(serverID string, snap SnapshotData) SnapshotData {
	owned := SnapshotData{
		Resources: map[string]*ResourceStatus{},
		Users:     map[string]*UserStatus{},
	}
	for id, res := range snap.Resources {
		if res.OwnerServer == serverID {
			owned.Resources[id] = res
		}
	}
	for id, user := range snap.Users {
		if user.OwnerServer == serverID {
			owned.Users[id] = user
		}
	}
	return owned
}
