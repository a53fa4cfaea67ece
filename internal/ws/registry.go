package ws

import (
	"sync"

	"github.com/YouMinSeok/Research-Chat-server/pkg/metrics"
)

// Registry maps rooms to their live connections and connections to the user
// bound at admission. Both maps share one mutex; it is held only for the map
// operation itself, never across socket I/O. Callers always get copies.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	users map[*Conn]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: map[string]map[*Conn]struct{}{},
		users: map[*Conn]string{},
	}
}

// Register adds c to the room's set and records its identity. Called exactly
// once per accepted connection.
func (r *Registry) Register(room string, c *Conn, user string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.rooms[room]
	if set == nil {
		set = map[*Conn]struct{}{}
		r.rooms[room] = set
	}
	set[c] = struct{}{}
	r.users[c] = user
	metrics.WSConnections.Inc()
}

// Unregister removes c and its identity; the room entry itself is dropped
// once empty. No-op when c is not present.
func (r *Registry) Unregister(room string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.rooms, room)
		}
	}
	if _, ok := r.users[c]; ok {
		delete(r.users, c)
		metrics.WSConnections.Dec()
	}
}

// LiveConnections returns a snapshot of the room's current set, safe to
// iterate while the registry keeps mutating.
func (r *Registry) LiveConnections(room string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.rooms[room]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// UserOf returns the user bound to c at admission
func (r *Registry) UserOf(c *Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[c]
	return user, ok
}

// ConnsOf returns every live connection bound to user, across all rooms
func (r *Registry) ConnsOf(user string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Conn
	for c, u := range r.users {
		if u == user {
			out = append(out, c)
		}
	}
	return out
}
