package core

import (
	"encoding/json"
	"sort"
	"time"
)

// Registry maps room ids to rooms. It is owned by the hub goroutine and
// is not safe for concurrent use on its own.
type Registry struct {
	rooms   map[string]*Room
	initial func() json.RawMessage
}

// NewRegistry builds an empty registry; initial seeds the state of new rooms.
func NewRegistry(initial func() json.RawMessage) *Registry {
	if initial == nil {
		initial = func() json.RawMessage { return json.RawMessage("{}") }
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		initial: initial,
	}
}

// GetOrCreate returns the room for id, creating an empty one stamped with now.
// The second result reports whether the room was created by this call.
func (r *Registry) GetOrCreate(id string, now time.Time) (*Room, bool) {
	if room, ok := r.rooms[id]; ok {
		return room, false
	}
	room := NewRoom(id, r.initial(), now)
	r.rooms[id] = room
	return room, true
}

// Get is a non-creating lookup.
func (r *Registry) Get(id string) *Room {
	return r.rooms[id]
}

// Remove deletes the room. Returns true if it was present.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.rooms[id]; !ok {
		return false
	}
	delete(r.rooms, id)
	return true
}

// Len returns the number of rooms.
func (r *Registry) Len() int { return len(r.rooms) }

// Participants returns the number of participants across all rooms.
func (r *Registry) Participants() int {
	n := 0
	for _, room := range r.rooms {
		n += room.Len()
	}
	return n
}

// Rooms returns all rooms ordered by id.
func (r *Registry) Rooms() []*Room {
	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Idle returns rooms whose last activity is older than threshold at now.
func (r *Registry) Idle(now time.Time, threshold time.Duration) []*Room {
	var out []*Room
	for _, room := range r.rooms {
		if now.Sub(room.lastActivityAt) > threshold {
			out = append(out, room)
		}
	}
	return out
}

// Clear drops every room.
func (r *Registry) Clear() {
	r.rooms = make(map[string]*Room)
}
