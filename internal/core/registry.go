package core

import "sync"

// Registry tracks which connections are subscribed to which rooms. It
// keeps two mirrored indexes so both directions are O(1); every
// mutation updates both under the same lock. Membership lives only in
// memory and dies with the process.
type Registry struct {
	mu    sync.Mutex
	rooms map[int64]map[Conn]struct{}
	conns map[Conn]map[int64]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]map[Conn]struct{}),
		conns: make(map[Conn]map[int64]struct{}),
	}
}

// Join subscribes c to roomID. Joining a room twice is a no-op.
func (r *Registry) Join(c Conn, roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[Conn]struct{})
		r.rooms[roomID] = members
	}
	members[c] = struct{}{}

	joined, ok := r.conns[c]
	if !ok {
		joined = make(map[int64]struct{})
		r.conns[c] = joined
	}
	joined[roomID] = struct{}{}
}

// Leave removes c from roomID. Leaving a room c is not in is a no-op.
func (r *Registry) Leave(c Conn, roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if joined, ok := r.conns[c]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.conns, c)
		}
	}
}

// MembersOf returns a snapshot of the room's current connections, safe
// to iterate while others mutate the registry.
func (r *Registry) MembersOf(roomID int64) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	out := make([]Conn, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms c is subscribed to.
func (r *Registry) RoomsOf(c Conn) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.conns[c]
	out := make([]int64, 0, len(joined))
	for roomID := range joined {
		out = append(out, roomID)
	}
	return out
}

// MemberCount reports the room's live occupancy.
func (r *Registry) MemberCount(roomID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}
