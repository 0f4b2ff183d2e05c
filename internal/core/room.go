package core

import (
	"encoding/json"
	"sort"
	"time"
)

type member struct {
	client *Client
	info   Participant
}

// Room is an ephemeral collaboration session: participants keyed by
// connection id plus one opaque shared-state blob.
type Room struct {
	ID string

	members        map[string]*member
	state          json.RawMessage
	createdAt      time.Time
	lastActivityAt time.Time
}

// NewRoom constructs a room with no participants.
func NewRoom(id string, initial json.RawMessage, now time.Time) *Room {
	return &Room{
		ID:             id,
		members:        make(map[string]*member),
		state:          initial,
		createdAt:      now,
		lastActivityAt: now,
	}
}

// Add inserts a participant. Returns true if newly added.
func (r *Room) Add(c *Client, info Participant) bool {
	if _, exists := r.members[c.ID]; exists {
		return false
	}
	r.members[c.ID] = &member{client: c, info: info}
	return true
}

// Remove deletes a participant. Returns true if removed.
func (r *Room) Remove(connID string) bool {
	if _, exists := r.members[connID]; !exists {
		return false
	}
	delete(r.members, connID)
	return true
}

// Has reports whether connID is a participant.
func (r *Room) Has(connID string) bool {
	_, ok := r.members[connID]
	return ok
}

// Participant returns the participant's metadata for in-place updates.
func (r *Room) Participant(connID string) (*Participant, bool) {
	m, ok := r.members[connID]
	if !ok {
		return nil, false
	}
	return &m.info, true
}

// Broadcast sends an event to every participant except the one with connID except.
// Participants whose buffer is full are returned instead of blocking.
func (r *Room) Broadcast(event *Event, except string) []*Client {
	var slow []*Client
	for id, m := range r.members {
		if id == except {
			continue
		}
		select {
		case m.client.Events <- event:
		default:
			slow = append(slow, m.client)
		}
	}
	return slow
}

// Participants returns a copy of the participants ordered by join time.
func (r *Room) Participants() []Participant {
	out := make([]Participant, 0, len(r.members))
	for _, m := range r.members {
		p := m.info
		if p.Presence != nil {
			p.Presence = append(json.RawMessage(nil), p.Presence...)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ConnID < out[j].ConnID
	})
	return out
}

// State returns the current shared-state snapshot.
func (r *Room) State() json.RawMessage { return r.state }

// SetState replaces the shared-state snapshot.
func (r *Room) SetState(s json.RawMessage) { r.state = s }

// Touch records activity at now.
func (r *Room) Touch(now time.Time) { r.lastActivityAt = now }

// LastActivity returns the last recorded activity time.
func (r *Room) LastActivity() time.Time { return r.lastActivityAt }

// CreatedAt returns the room's creation time.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Len returns the number of participants.
func (r *Room) Len() int { return len(r.members) }

// Empty returns true if no participants are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}
