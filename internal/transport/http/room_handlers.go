package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/proto"
)

// RoomHandlers serves read-only views of the live room registry.
type RoomHandlers struct {
	hub Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID             string `json:"id"`
	Participants   int    `json:"participants"`
	StateBytes     int    `json:"state_bytes"`
	CreatedAt      string `json:"created_at"`
	LastActivityAt string `json:"last_activity_at"`
}

// RoomDetailResponse adds the participant list to RoomResponse.
type RoomDetailResponse struct {
	RoomResponse
	Users []proto.ParticipantInfo `json:"users"`
}

func roomResponse(info core.RoomInfo) RoomResponse {
	return RoomResponse{
		ID:             info.ID,
		Participants:   len(info.Participants),
		StateBytes:     len(info.State),
		CreatedAt:      info.CreatedAt.UTC().Format(time.RFC3339),
		LastActivityAt: info.LastActivityAt.UTC().Format(time.RFC3339),
	}
}

// ListRooms lists every live room.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.hub.Rooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "coordinator unavailable"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, roomResponse(room))
	}

	h.log.Debug().Int("room_count", len(rooms)).Msg("rooms listed")
	c.JSON(http.StatusOK, response)
}

// GetRoom returns one room with its participants.
// GET /api/rooms/:id
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	id := c.Param("id")
	room, found, err := h.hub.Room(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("room", id).Msg("failed to get room")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "coordinator unavailable"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}

	users := make([]proto.ParticipantInfo, 0, len(room.Participants))
	for _, p := range room.Participants {
		users = append(users, participantInfo(p))
	}
	c.JSON(http.StatusOK, RoomDetailResponse{RoomResponse: roomResponse(room), Users: users})
}
