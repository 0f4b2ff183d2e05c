package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/media"
	"github.com/vovakirdan/roomsync-server/internal/metrics"
	"github.com/vovakirdan/roomsync-server/internal/state"
)

// PresenceMode selects how status changes reach the rest of a room.
type PresenceMode string

const (
	// PresenceDiff relays each change to the other participants.
	PresenceDiff PresenceMode = "diff"
	// PresenceSnapshot broadcasts the full participants map to the whole room
	// on every join, leave and status change.
	PresenceSnapshot PresenceMode = "snapshot"
)

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMerger sets the shared-state merge policy.
func WithMerger(m state.Merger) Option {
	return func(h *Hub) {
		if m != nil {
			h.merger = m
		}
	}
}

// WithMedia enables media credentials for joins that ask for them.
func WithMedia(e media.Engine) Option {
	return func(h *Hub) { h.media = e }
}

// WithMetrics records hub activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithIdleEviction removes rooms idle for longer than threshold, checked every interval.
// A zero interval or threshold disables eviction.
func WithIdleEviction(threshold, interval time.Duration) Option {
	return func(h *Hub) {
		h.idleThreshold = threshold
		h.sweepInterval = interval
	}
}

// WithMaxParticipants caps room size; zero means unlimited.
func WithMaxParticipants(n int) Option {
	return func(h *Hub) { h.maxParticipants = n }
}

// WithPresenceMode sets how status records are broadcast.
func WithPresenceMode(mode PresenceMode) Option {
	return func(h *Hub) {
		if mode != "" {
			h.presenceMode = mode
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

type envelope struct {
	client *Client
	cmd    *Command
}

// Hub coordinates rooms for every connected client.
// All registry and room mutations run on the goroutine executing Run,
// one command at a time.
type Hub struct {
	registry *Registry
	merger   state.Merger
	media    media.Engine
	metrics  *metrics.Metrics
	log      *zerolog.Logger
	now      func() time.Time
	ctx      context.Context

	idleThreshold   time.Duration
	sweepInterval   time.Duration
	maxParticipants int
	presenceMode    PresenceMode

	clients    map[string]*Client
	slow       []*Client
	inbox      chan envelope
	register   chan *Client
	unregister chan *Client
	queries    chan func()
	done       chan struct{}
}

// NewHub creates a new hub. Without options rooms start as "{}",
// patches replace the snapshot and idle eviction is off.
func NewHub(opts ...Option) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		merger:       state.Replace{Empty: []byte("{}")},
		log:          &nop,
		now:          time.Now,
		ctx:          context.Background(),
		presenceMode: PresenceDiff,
		clients:      make(map[string]*Client),
		inbox:        make(chan envelope, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		queries:      make(chan func()),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registry = NewRegistry(h.merger.Initial)
	return h
}

// Run processes commands until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx

	var sweep <-chan time.Time
	if h.sweepInterval > 0 && h.idleThreshold > 0 {
		ticker := time.NewTicker(h.sweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case env := <-h.inbox:
			if h.clients[env.client.ID] == env.client {
				h.dispatch(env.client, env.cmd)
			}
		case q := <-h.queries:
			q()
		case <-sweep:
			h.sweep(h.now())
		}
		h.dropSlow()
		h.metrics.SetRooms(h.registry.Len())
		h.metrics.SetParticipants(h.registry.Participants())
	}
}

// RegisterClient attaches c to the hub; its Commands start being processed.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Events)
	}
}

// UnregisterClient detaches c, leaving its room. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	if _, exists := h.clients[c.ID]; exists {
		h.log.Warn().Str("client_id", c.ID).Msg("duplicate client id, closing")
		close(c.Events)
		return
	}
	h.clients[c.ID] = c
	go h.pump(c)
	h.log.Debug().Str("client_id", c.ID).Str("room", c.HandshakeRoom).Msg("client registered")
}

// pump forwards a client's commands to the hub inbox in order.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.quit:
				return
			case <-h.done:
				return
			}
		case <-c.quit:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	if h.clients[c.ID] != c {
		return
	}
	h.leave(c)
	h.detach(c)
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) detach(c *Client) {
	delete(h.clients, c.ID)
	close(c.quit)
	close(c.Events)
}

// reply sends an event to one client without blocking.
func (h *Hub) reply(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.markSlow(c)
	}
}

// broadcast delivers ev to every participant of roomID except sender.
// An unknown room is a no-op.
func (h *Hub) broadcast(roomID, sender string, ev *Event) {
	room := h.registry.Get(roomID)
	if room == nil {
		return
	}
	for _, c := range room.Broadcast(ev, sender) {
		h.markSlow(c)
	}
}

func (h *Hub) markSlow(c *Client) {
	if c.dropping {
		return
	}
	c.dropping = true
	h.slow = append(h.slow, c)
}

// dropSlow disconnects clients that could not keep up. Their leave may
// overflow further buffers, so the queue is drained until empty.
func (h *Hub) dropSlow() {
	for len(h.slow) > 0 {
		c := h.slow[0]
		h.slow = h.slow[1:]
		if h.clients[c.ID] != c {
			continue
		}
		h.log.Warn().Str("client_id", c.ID).Str("room", c.room).Msg("dropping slow client")
		h.metrics.Dropped()
		h.leave(c)
		h.detach(c)
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	for _, c := range h.clients {
		close(c.quit)
		close(c.Events)
	}
	h.clients = make(map[string]*Client)
	h.registry.Clear()
	h.metrics.SetRooms(0)
	h.metrics.SetParticipants(0)
	h.log.Info().Msg("hub stopped")
}

// RoomInfo is a read-only view of a room.
type RoomInfo struct {
	ID             string
	Participants   []Participant
	State          []byte
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func roomInfo(r *Room) RoomInfo {
	return RoomInfo{
		ID:             r.ID,
		Participants:   r.Participants(),
		State:          append([]byte(nil), r.State()...),
		CreatedAt:      r.CreatedAt(),
		LastActivityAt: r.LastActivity(),
	}
}

// Rooms lists every room in the registry.
func (h *Hub) Rooms(ctx context.Context) ([]RoomInfo, error) {
	var out []RoomInfo
	err := h.query(ctx, func() {
		for _, r := range h.registry.Rooms() {
			out = append(out, roomInfo(r))
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Room looks up a single room; the bool is false when it does not exist.
func (h *Hub) Room(ctx context.Context, id string) (RoomInfo, bool, error) {
	var (
		info  RoomInfo
		found bool
	)
	err := h.query(ctx, func() {
		if r := h.registry.Get(id); r != nil {
			info, found = roomInfo(r), true
		}
	})
	if err != nil {
		return RoomInfo{}, false, err
	}
	return info, found, nil
}

// query runs fn on the hub goroutine and waits for it. When it returns an
// error fn may still be running, so callers must not read what fn writes.
func (h *Hub) query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(finished) }:
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
