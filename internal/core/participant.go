package core

import (
	"encoding/json"
	"time"
)

// Status is the voice-chat status record a participant publishes.
type Status struct {
	Microphone bool
	Muted      bool
	Online     bool
}

// Participant is one live connection's identity and status within a room.
type Participant struct {
	ConnID         string
	DisplayName    string
	ExternalUserID string
	Status         Status
	// Presence is the last ephemeral payload (cursor and the like), never part of shared state.
	Presence json.RawMessage
	JoinedAt time.Time
}
