package core

import (
	"time"

	"github.com/vovakirdan/roomsync-server/internal/metrics"
)

// sweep evicts every room idle for longer than the threshold, connected
// participants or not. Their clients keep the room tag and recreate the
// room on their next update.
func (h *Hub) sweep(now time.Time) {
	for _, room := range h.registry.Idle(now, h.idleThreshold) {
		h.registry.Remove(room.ID)
		h.metrics.Evicted(metrics.EvictIdle)
		h.log.Info().
			Str("room", room.ID).
			Int("participants", room.Len()).
			Dur("idle", now.Sub(room.LastActivity())).
			Msg("evicted idle room")
	}
}
