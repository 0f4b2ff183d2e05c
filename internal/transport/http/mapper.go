package http

import (
	"bytes"
	"encoding/json"

	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/proto"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

// isNull reports whether a raw field is absent or JSON null.
func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decode unmarshals optional payloads; an absent data field leaves v untouched.
func decode(data json.RawMessage, v any) bool {
	if isNull(data) {
		return true
	}
	return json.Unmarshal(data, v) == nil
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom:
		var join proto.JoinData
		if !decode(inbound.Data, &join) {
			return nil, badRequest("invalid join-room payload")
		}
		return &core.Command{
			Kind:           core.CommandJoinRoom,
			Room:           join.Room,
			DisplayName:    join.DisplayName,
			ExternalUserID: join.ExternalUserID,
			Media:          join.Media,
		}, nil
	case proto.InboundTypeRequestState:
		var req proto.RequestStateData
		if !decode(inbound.Data, &req) {
			return nil, badRequest("invalid request-state payload")
		}
		return &core.Command{Kind: core.CommandRequestState, Room: req.Room}, nil
	case proto.InboundTypeStateUpdate:
		var upd proto.StateUpdateData
		if !decode(inbound.Data, &upd) {
			return nil, badRequest("invalid state-update payload")
		}
		if isNull(upd.Patch) {
			return nil, badRequest("patch is required")
		}
		return &core.Command{Kind: core.CommandStateUpdate, Patch: upd.Patch}, nil
	case proto.InboundTypePresenceUpdate:
		var p proto.PresenceData
		if !decode(inbound.Data, &p) {
			return nil, badRequest("invalid presence-update payload")
		}
		return &core.Command{Kind: core.CommandPresenceUpdate, Presence: p.Presence}, nil
	case proto.InboundTypeUserInformation:
		var info proto.UserInformationData
		if !decode(inbound.Data, &info) {
			return nil, badRequest("invalid user-information payload")
		}
		return &core.Command{
			Kind:        core.CommandUserInformation,
			Room:        info.Room,
			DisplayName: info.DisplayName,
			Status: &core.Status{
				Microphone: info.Microphone,
				Muted:      info.Muted,
				Online:     info.Online,
			},
		}, nil
	case proto.InboundTypeLeaveRoom:
		return &core.Command{Kind: core.CommandLeaveRoom}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func participantInfo(p core.Participant) proto.ParticipantInfo {
	return proto.ParticipantInfo{
		ID:             p.ConnID,
		DisplayName:    p.DisplayName,
		ExternalUserID: p.ExternalUserID,
		Microphone:     p.Status.Microphone,
		Muted:          p.Status.Muted,
		Online:         p.Status.Online,
		Presence:       p.Presence,
		JoinedAt:       p.JoinedAt.UnixMilli(),
	}
}

func event(ev *core.Event, data any) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: ev.Kind.String(),
		Room:  ev.Room,
		Data:  data,
	}
}

func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventInitialState:
		return event(ev, proto.EventInitialStateData{State: ev.State})
	case core.EventParticipantJoined:
		if ev.Participant == nil {
			return event(ev, proto.ParticipantInfo{ID: ev.From})
		}
		return event(ev, participantInfo(*ev.Participant))
	case core.EventParticipantLeft:
		return event(ev, proto.EventParticipantLeftData{ID: ev.From})
	case core.EventStateUpdate:
		return event(ev, proto.EventStateUpdateData{From: ev.From, Patch: ev.Patch})
	case core.EventPresenceUpdate:
		data := proto.EventPresenceUpdateData{From: ev.From, Presence: ev.Presence}
		if ev.Participant != nil {
			info := participantInfo(*ev.Participant)
			data.Participant = &info
		}
		return event(ev, data)
	case core.EventUsersSnapshot:
		users := make(map[string]proto.ParticipantInfo, len(ev.Users))
		for _, u := range ev.Users {
			users[u.ConnID] = participantInfo(u)
		}
		return event(ev, proto.EventUsersSnapshotData{Users: users})
	case core.EventMediaCredentials:
		if ev.Media == nil {
			return event(ev, nil)
		}
		return event(ev, proto.EventMediaCredentialsData{
			URL:      ev.Media.URL,
			Token:    ev.Media.Token,
			RoomName: ev.Media.RoomName,
			Identity: ev.Media.Identity,
		})
	case core.EventError:
		if ev.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Room: ev.Room, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Room:  ev.Room,
			Error: &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
