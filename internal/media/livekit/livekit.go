package livekit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/roomsync-server/internal/media"
)

// Engine implements media.Engine by signing LiveKit access tokens.
// LiveKit creates rooms on demand when the first participant connects,
// so no server API call is needed here.
type Engine struct {
	apiKey    string
	apiSecret string
	wsURL     string
	ttl       time.Duration
}

// New creates a new Engine. A zero ttl defaults to one hour.
func New(apiKey, apiSecret, wsURL string, ttl time.Duration) (*Engine, error) {
	if apiKey == "" || apiSecret == "" || wsURL == "" {
		return nil, errors.New("livekit: url, api key and api secret are required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Engine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		wsURL:     wsURL,
		ttl:       ttl,
	}, nil
}

// RoomName maps a coordinator room id to its LiveKit room.
func RoomName(roomID string) string {
	return "roomsync-voice-" + roomID
}

// JoinInfo creates join credentials for a participant of roomID.
func (e *Engine) JoinInfo(_ context.Context, roomID, identity, displayName string) (*media.JoinInfo, error) {
	if roomID == "" || identity == "" {
		return nil, errors.New("livekit: room and identity are required")
	}

	roomName := RoomName(roomID)
	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	at.SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(displayName).
		SetValidFor(e.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &media.JoinInfo{
		URL:      e.wsURL,
		Token:    token,
		RoomName: roomName,
		Identity: identity,
	}, nil
}

var _ media.Engine = (*Engine)(nil)
