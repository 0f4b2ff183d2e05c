package core

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/roomsync-server/internal/media"
	"github.com/vovakirdan/roomsync-server/internal/metrics"
	"github.com/vovakirdan/roomsync-server/internal/state"
)

// dispatch runs one command to completion. A panic inside a handler is
// reported to the acting client and never escapes the hub loop.
func (h *Hub) dispatch(c *Client, cmd *Command) {
	h.metrics.Command(cmd.Kind.String())

	defer func() {
		if r := recover(); r != nil {
			h.log.Error().
				Str("client_id", c.ID).
				Str("command", cmd.Kind.String()).
				Str("panic", fmt.Sprint(r)).
				Msg("command handler panicked")
			h.repair(c)
			h.reply(c, errorEvent(c.room, coreError(ErrCodeInternal, "internal error")))
		}
	}()

	switch cmd.Kind {
	case CommandJoinRoom:
		h.join(c, joinRequest{
			room:           cmd.Room,
			displayName:    cmd.DisplayName,
			externalUserID: cmd.ExternalUserID,
			media:          cmd.Media,
		})
	case CommandRequestState:
		h.requestState(c, cmd.Room)
	case CommandStateUpdate:
		h.stateUpdate(c, cmd)
	case CommandPresenceUpdate:
		h.presenceUpdate(c, cmd)
	case CommandUserInformation:
		h.userInformation(c, cmd)
	case CommandLeaveRoom:
		h.leave(c)
	default:
		h.reply(c, errorEvent(cmd.Room, coreError(ErrCodeBadRequest, "unknown command")))
	}
}

// repair restores the client/room invariants after a failed command.
func (h *Hub) repair(c *Client) {
	room := h.registry.Get(c.room)
	if c.joined && (room == nil || !room.Has(c.ID)) {
		c.joined = false
	}
	if room != nil && room.Empty() {
		h.registry.Remove(room.ID)
		h.metrics.Evicted(metrics.EvictEmpty)
	}
}

type joinRequest struct {
	room           string
	displayName    string
	externalUserID string
	media          bool
	status         *Status
}

// join registers c in a room. Either the participant is fully registered
// and notified, or nothing changes and c gets an error event.
func (h *Hub) join(c *Client, req joinRequest) {
	roomID := req.room
	if roomID == "" {
		roomID = c.room
	}
	if roomID == "" {
		h.reply(c, errorEvent("", coreError(ErrCodeBadRequest, "room is required")))
		return
	}

	profile := h.profileFor(c, req)
	now := h.now()

	if room := h.registry.Get(roomID); room != nil && room.Has(c.ID) {
		p, _ := room.Participant(c.ID)
		p.DisplayName = profile.DisplayName
		p.ExternalUserID = profile.ExternalUserID
		p.Status = profile.Status
		c.profile = *p
		room.Touch(now)
		h.reply(c, &Event{Kind: EventInitialState, Room: roomID, State: room.State()})
		h.publishUsers(room)
		return
	}

	// Everything that can refuse the join runs before c leaves its current room.
	if target := h.registry.Get(roomID); target != nil && h.maxParticipants > 0 && target.Len() >= h.maxParticipants {
		h.reply(c, errorEvent(roomID, coreError(ErrCodeRoomFull, "room is full")))
		return
	}

	var creds *media.JoinInfo
	if req.media && h.media != nil {
		info, err := h.media.JoinInfo(h.ctx, roomID, c.ID, profile.DisplayName)
		if err != nil {
			h.log.Error().Err(err).Str("client_id", c.ID).Str("room", roomID).Msg("issue media credentials")
			h.reply(c, errorEvent(roomID, coreError(ErrCodeMediaUnavailable, "media credentials unavailable")))
			return
		}
		creds = info
	}

	if c.joined && c.room != roomID {
		h.leave(c)
	}
	c.room = roomID
	room, created := h.registry.GetOrCreate(roomID, now)

	profile.JoinedAt = now
	room.Add(c, profile)
	room.Touch(now)
	c.joined = true
	c.profile = profile

	h.log.Info().
		Str("client_id", c.ID).
		Str("room", roomID).
		Str("name", profile.DisplayName).
		Bool("created", created).
		Msg("participant joined")

	h.reply(c, &Event{Kind: EventInitialState, Room: roomID, State: room.State()})
	if creds != nil {
		h.reply(c, &Event{Kind: EventMediaCredentials, Room: roomID, Media: creds})
	}
	joined := profile
	h.broadcast(roomID, c.ID, &Event{
		Kind:        EventParticipantJoined,
		Room:        roomID,
		From:        c.ID,
		Participant: &joined,
	})
	h.publishUsers(room)
}

func (h *Hub) profileFor(c *Client, req joinRequest) Participant {
	p := c.profile
	p.ConnID = c.ID
	switch {
	case req.displayName != "":
		p.DisplayName = req.displayName
	case p.DisplayName == "":
		p.DisplayName = c.Name
	}
	switch {
	case c.UserID != "":
		p.ExternalUserID = c.UserID
	case req.externalUserID != "":
		p.ExternalUserID = req.externalUserID
	}
	if req.status != nil {
		p.Status = *req.status
	}
	return p
}

// leave removes c from its room. Calling it for a client that is not
// joined is a no-op, so disconnect racing an explicit leave is harmless.
func (h *Hub) leave(c *Client) {
	if !c.joined {
		return
	}
	c.joined = false

	room := h.registry.Get(c.room)
	if room == nil || !room.Remove(c.ID) {
		return
	}
	room.Touch(h.now())

	h.log.Info().Str("client_id", c.ID).Str("room", room.ID).Msg("participant left")

	h.broadcast(room.ID, c.ID, &Event{Kind: EventParticipantLeft, Room: room.ID, From: c.ID})
	if room.Empty() {
		h.registry.Remove(room.ID)
		h.metrics.Evicted(metrics.EvictEmpty)
		h.log.Debug().Str("room", room.ID).Msg("removed empty room")
		return
	}
	h.publishUsers(room)
}

// requestState answers with the current snapshot. A room that no longer
// exists is a silent no-op.
func (h *Hub) requestState(c *Client, roomID string) {
	if roomID == "" {
		roomID = c.room
	}
	room := h.registry.Get(roomID)
	if room == nil {
		h.log.Debug().Str("client_id", c.ID).Str("room", roomID).Msg("state requested for missing room")
		return
	}
	if !room.Has(c.ID) {
		h.reply(c, errorEvent(roomID, coreError(ErrCodeNotInRoom, "not in room")))
		return
	}
	h.reply(c, &Event{Kind: EventInitialState, Room: roomID, State: room.State()})
}

// currentRoom resolves the room c is joined to. A room reaped while c was
// connected is recreated and c re-registered into it.
func (h *Hub) currentRoom(c *Client) (*Room, *CoreError) {
	if !c.joined {
		return nil, coreError(ErrCodeNotInRoom, "not in room")
	}
	now := h.now()
	room, created := h.registry.GetOrCreate(c.room, now)
	if room.Has(c.ID) {
		return room, nil
	}
	if !created && h.maxParticipants > 0 && room.Len() >= h.maxParticipants {
		c.joined = false
		return nil, coreError(ErrCodeRoomFull, "room is full")
	}

	profile := c.profile
	profile.JoinedAt = now
	room.Add(c, profile)
	room.Touch(now)
	c.profile = profile

	h.log.Info().Str("client_id", c.ID).Str("room", room.ID).Bool("created", created).Msg("participant rejoined evicted room")
	joined := profile
	h.broadcast(room.ID, c.ID, &Event{Kind: EventParticipantJoined, Room: room.ID, From: c.ID, Participant: &joined})
	return room, nil
}

// stateUpdate applies a durable patch and relays it verbatim to everyone else.
func (h *Hub) stateUpdate(c *Client, cmd *Command) {
	room, cerr := h.currentRoom(c)
	if cerr != nil {
		h.reply(c, errorEvent(c.room, cerr))
		return
	}

	next, err := h.merger.Apply(room.State(), cmd.Patch)
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", c.ID).Str("room", room.ID).Msg("apply patch")
		cerr := coreError(ErrCodeInternal, "internal error")
		if errors.Is(err, state.ErrInvalidPatch) {
			cerr = coreError(ErrCodeInvalidPatch, err.Error())
		}
		h.reply(c, errorEvent(room.ID, cerr))
		return
	}
	room.SetState(next)
	room.Touch(h.now())

	h.broadcast(room.ID, c.ID, &Event{Kind: EventStateUpdate, Room: room.ID, From: c.ID, Patch: cmd.Patch})
}

// presenceUpdate stores and relays an ephemeral payload. It does not count
// as room activity.
func (h *Hub) presenceUpdate(c *Client, cmd *Command) {
	if !c.joined {
		h.reply(c, errorEvent(c.room, coreError(ErrCodeNotInRoom, "not in room")))
		return
	}
	room := h.registry.Get(c.room)
	if room == nil {
		return
	}
	p, ok := room.Participant(c.ID)
	if !ok {
		return
	}
	p.Presence = cmd.Presence
	h.broadcast(room.ID, c.ID, &Event{Kind: EventPresenceUpdate, Room: room.ID, From: c.ID, Presence: cmd.Presence})
}

// userInformation publishes the voice status record, joining the
// handshake room on first use.
func (h *Hub) userInformation(c *Client, cmd *Command) {
	status := Status{}
	if cmd.Status != nil {
		status = *cmd.Status
	}

	if !c.joined {
		h.join(c, joinRequest{
			room:           cmd.Room,
			displayName:    cmd.DisplayName,
			externalUserID: cmd.ExternalUserID,
			media:          true,
			status:         &status,
		})
		return
	}

	room, cerr := h.currentRoom(c)
	if cerr != nil {
		h.reply(c, errorEvent(c.room, cerr))
		return
	}
	p, _ := room.Participant(c.ID)
	p.Status = status
	if cmd.DisplayName != "" {
		p.DisplayName = cmd.DisplayName
	}
	c.profile = *p

	if h.presenceMode == PresenceSnapshot {
		h.publishUsers(room)
		return
	}
	info := *p
	h.broadcast(room.ID, c.ID, &Event{Kind: EventPresenceUpdate, Room: room.ID, From: c.ID, Participant: &info})
}

// publishUsers broadcasts the entire participants map when the hub runs in
// snapshot presence mode.
func (h *Hub) publishUsers(room *Room) {
	if h.presenceMode != PresenceSnapshot {
		return
	}
	h.broadcast(room.ID, "", &Event{Kind: EventUsersSnapshot, Room: room.ID, Users: room.Participants()})
}
