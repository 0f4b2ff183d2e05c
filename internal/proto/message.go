package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinRoom        = "join-room"
	InboundTypeRequestState    = "request-state"
	InboundTypeStateUpdate     = "state-update"
	InboundTypePresenceUpdate  = "presence-update"
	InboundTypeUserInformation = "user-information"
	InboundTypeLeaveRoom       = "leave-room"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventInitialState      = "initial-state"
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventStateUpdate       = "state-update"
	EventPresenceUpdate    = "presence-update"
	EventUsersSnapshot     = "users-snapshot"
	EventMediaCredentials  = "media-credentials"
)

// JoinData requests to join a room. An empty room means the handshake room.
type JoinData struct {
	Room           string `json:"roomId,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	ExternalUserID string `json:"externalUserId,omitempty"`
	Media          bool   `json:"media,omitempty"`
}

// RequestStateData asks for the current snapshot of a room.
type RequestStateData struct {
	Room string `json:"roomId,omitempty"`
}

// StateUpdateData carries an opaque durable patch.
type StateUpdateData struct {
	Patch json.RawMessage `json:"patch"`
}

// PresenceData carries an opaque ephemeral payload.
type PresenceData struct {
	Presence json.RawMessage `json:"presence"`
}

// UserInformationData is the voice-chat status record, sent whole every time.
type UserInformationData struct {
	Room        string `json:"roomId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Microphone  bool   `json:"microphone"`
	Muted       bool   `json:"muted"`
	Online      bool   `json:"online"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Room  string `json:"room,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ParticipantInfo is a participant's public metadata.
type ParticipantInfo struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"displayName"`
	ExternalUserID string          `json:"externalUserId,omitempty"`
	Microphone     bool            `json:"microphone"`
	Muted          bool            `json:"muted"`
	Online         bool            `json:"online"`
	Presence       json.RawMessage `json:"presence,omitempty"`
	JoinedAt       int64           `json:"joinedAt"`
}

// EventInitialStateData is the full snapshot delivered to one client.
type EventInitialStateData struct {
	State json.RawMessage `json:"state"`
}

// EventParticipantLeftData identifies the connection that left.
type EventParticipantLeftData struct {
	ID string `json:"id"`
}

// EventStateUpdateData relays a patch from another participant.
type EventStateUpdateData struct {
	From  string          `json:"from"`
	Patch json.RawMessage `json:"patch"`
}

// EventPresenceUpdateData relays an ephemeral payload or a status record.
type EventPresenceUpdateData struct {
	From        string           `json:"from"`
	Presence    json.RawMessage  `json:"presence,omitempty"`
	Participant *ParticipantInfo `json:"participant,omitempty"`
}

// EventUsersSnapshotData carries every participant of the room keyed by connection id.
type EventUsersSnapshotData struct {
	Users map[string]ParticipantInfo `json:"users"`
}

// EventMediaCredentialsData lets a voice participant reach the media backend.
type EventMediaCredentialsData struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	RoomName string `json:"roomName"`
	Identity string `json:"identity"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
