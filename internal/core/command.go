package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom registers the client as a participant of a room.
	CommandJoinRoom CommandKind = iota
	// CommandRequestState asks for the current shared-state snapshot.
	CommandRequestState
	// CommandStateUpdate applies a durable patch and relays it to the room.
	CommandStateUpdate
	// CommandPresenceUpdate relays an ephemeral payload (cursor position and the like).
	CommandPresenceUpdate
	// CommandUserInformation publishes the voice-chat status record.
	CommandUserInformation
	// CommandLeaveRoom removes the client from its room.
	CommandLeaveRoom
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join-room"
	case CommandRequestState:
		return "request-state"
	case CommandStateUpdate:
		return "state-update"
	case CommandPresenceUpdate:
		return "presence-update"
	case CommandUserInformation:
		return "user-information"
	case CommandLeaveRoom:
		return "leave-room"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind           CommandKind
	Room           string
	DisplayName    string
	ExternalUserID string
	// Media requests media credentials along with the join.
	Media    bool
	Patch    json.RawMessage
	Presence json.RawMessage
	Status   *Status
}
