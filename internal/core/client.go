package core

// DefaultClientBuffer is the events buffer of clients built by NewClient.
const DefaultClientBuffer = 64

// Client is a live connection as seen by the core layer.
//
// Commands and Events are the only fields the transport touches after
// registration; the rest is owned by the hub goroutine.
type Client struct {
	ID     string
	Name   string
	UserID string // verified external user id, empty when the handshake carried no token
	// HandshakeRoom is the room the connection was tagged with at the gateway.
	HandshakeRoom string

	Commands chan *Command
	Events   chan *Event

	room     string
	joined   bool
	profile  Participant
	dropping bool
	quit     chan struct{}
}

// NewClient constructs a client tagged with room and with initialized channels.
func NewClient(id, name, room string) *Client {
	return NewClientBuffered(id, name, room, DefaultClientBuffer)
}

// NewClientBuffered is NewClient with an explicit events buffer size.
func NewClientBuffered(id, name, room string, buffer int) *Client {
	if name == "" {
		name = id
	}
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:            id,
		Name:          name,
		HandshakeRoom: room,
		Commands:      make(chan *Command, 16),
		Events:        make(chan *Event, buffer),
		room:          room,
		quit:          make(chan struct{}),
	}
}
