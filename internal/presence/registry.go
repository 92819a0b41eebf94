// Package presence tracks which users hold live connections and on how many
// devices.
package presence

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// Conn is one live transport session owned by a single user.
type Conn interface {
	ID() uuid.UUID
	UserID() uuid.UUID
	// Send queues a frame without blocking. It reports false when the frame
	// was dropped.
	Send(frame []byte) bool
}

type userShard struct {
	mu    sync.RWMutex
	users map[uuid.UUID]map[uuid.UUID]Conn
}

type connShard struct {
	mu     sync.Mutex
	owners map[uuid.UUID]uuid.UUID
}

// Registry maps users to their live connections. State is split across
// shards so users on different shards never contend. A user with no
// connections has no entry.
//
// Lock order is connection shard, then user shard. At most one user shard is
// held at a time.
type Registry struct {
	users []*userShard
	conns []*connShard
}

func NewRegistry(shards int) *Registry {
	if shards <= 0 {
		shards = 1
	}
	r := &Registry{
		users: make([]*userShard, shards),
		conns: make([]*connShard, shards),
	}
	for i := range shards {
		r.users[i] = &userShard{users: make(map[uuid.UUID]map[uuid.UUID]Conn)}
		r.conns[i] = &connShard{owners: make(map[uuid.UUID]uuid.UUID)}
	}
	return r
}

func shardIndex(id uuid.UUID, n int) int {
	h := fnv.New32a()
	_, _ = h.Write(id[:])
	return int(h.Sum32() % uint32(n))
}

func (r *Registry) userShard(userID uuid.UUID) *userShard {
	return r.users[shardIndex(userID, len(r.users))]
}

func (r *Registry) connShard(connID uuid.UUID) *connShard {
	return r.conns[shardIndex(connID, len(r.conns))]
}

// Register adds conn under conn.UserID(). Registering the same handle again
// is a no-op. A handle known under another user is moved. first reports
// whether the user just came online; left is the previous owner when the
// move took them offline, uuid.Nil otherwise.
func (r *Registry) Register(conn Conn) (first bool, left uuid.UUID) {
	connID, userID := conn.ID(), conn.UserID()

	cs := r.connShard(connID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if prev, ok := cs.owners[connID]; ok {
		if prev == userID {
			return false, uuid.Nil
		}
		if r.detach(prev, connID) {
			left = prev
		}
	}
	cs.owners[connID] = userID

	us := r.userShard(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	set, ok := us.users[userID]
	if !ok {
		set = make(map[uuid.UUID]Conn)
		us.users[userID] = set
	}
	set[connID] = conn
	return !ok, left
}

// Unregister removes the handle from whichever user owns it. Unknown handles
// are ignored. last reports whether the owner just went offline.
func (r *Registry) Unregister(connID uuid.UUID) (userID uuid.UUID, last bool) {
	cs := r.connShard(connID)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	userID, ok := cs.owners[connID]
	if !ok {
		return uuid.Nil, false
	}
	delete(cs.owners, connID)
	return userID, r.detach(userID, connID)
}

// detach drops connID from userID's set and reports whether the set emptied.
// The caller holds the connection shard lock.
func (r *Registry) detach(userID, connID uuid.UUID) bool {
	us := r.userShard(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	set, ok := us.users[userID]
	if !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(us.users, userID)
		return true
	}
	return false
}

// Resolve returns every live connection of the given users, each once.
func (r *Registry) Resolve(userIDs []uuid.UUID) []Conn {
	var out []Conn
	seen := make(map[uuid.UUID]struct{})

	for _, userID := range userIDs {
		us := r.userShard(userID)
		us.mu.RLock()
		for connID, conn := range us.users[userID] {
			if _, dup := seen[connID]; dup {
				continue
			}
			seen[connID] = struct{}{}
			out = append(out, conn)
		}
		us.mu.RUnlock()
	}
	return out
}

func (r *Registry) Online(userID uuid.UUID) bool {
	return r.ConnectionCount(userID) > 0
}

func (r *Registry) ConnectionCount(userID uuid.UUID) int {
	us := r.userShard(userID)
	us.mu.RLock()
	defer us.mu.RUnlock()
	return len(us.users[userID])
}

// Stats counts online users and live connections. Shards are read one at a
// time, so the totals are approximate under concurrent changes.
func (r *Registry) Stats() (users, conns int) {
	for _, us := range r.users {
		us.mu.RLock()
		users += len(us.users)
		for _, set := range us.users {
			conns += len(set)
		}
		us.mu.RUnlock()
	}
	return users, conns
}
