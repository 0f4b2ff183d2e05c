package media

import "context"

// JoinInfo contains what a voice participant needs to reach the media backend.
type JoinInfo struct {
	URL      string `json:"url"`       // WebSocket URL (e.g., ws://localhost:7880)
	Token    string `json:"token"`     // access token for the media room
	RoomName string `json:"room_name"` // media room name
	Identity string `json:"identity"`  // participant identity in the media room
}

// Engine abstracts the media backend behind voice rooms.
// Implementations must not block on network I/O: they run inside the hub loop.
type Engine interface {
	// JoinInfo issues credentials for a participant of a voice room.
	JoinInfo(ctx context.Context, roomID, identity, displayName string) (*JoinInfo, error)
}
