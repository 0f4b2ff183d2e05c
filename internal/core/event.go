package core

import (
	"encoding/json"

	"github.com/vovakirdan/roomsync-server/internal/media"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventInitialState delivers the full shared-state snapshot to one client.
	EventInitialState EventKind = iota
	// EventParticipantJoined notifies others that a participant joined.
	EventParticipantJoined
	// EventParticipantLeft notifies others that a participant left, by connection id.
	EventParticipantLeft
	// EventStateUpdate relays a durable patch verbatim.
	EventStateUpdate
	// EventPresenceUpdate relays an ephemeral payload or status record.
	EventPresenceUpdate
	// EventUsersSnapshot carries the entire participants map of a room.
	EventUsersSnapshot
	// EventMediaCredentials delivers media backend credentials to a voice participant.
	EventMediaCredentials
	// EventError notifies a client about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventInitialState:
		return "initial-state"
	case EventParticipantJoined:
		return "participant-joined"
	case EventParticipantLeft:
		return "participant-left"
	case EventStateUpdate:
		return "state-update"
	case EventPresenceUpdate:
		return "presence-update"
	case EventUsersSnapshot:
		return "users-snapshot"
	case EventMediaCredentials:
		return "media-credentials"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in a room.
// Broadcast events are shared between recipients and must not be mutated.
type Event struct {
	Kind        EventKind
	Room        string
	From        string // connection id of the participant the event is about
	Participant *Participant
	State       json.RawMessage
	Patch       json.RawMessage
	Presence    json.RawMessage
	Users       []Participant
	Media       *media.JoinInfo
	Error       *CoreError
}

func errorEvent(room string, err *CoreError) *Event {
	return &Event{Kind: EventError, Room: room, Error: err}
}
