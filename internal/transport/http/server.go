package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/config"
	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/metrics"
)

// Hub is the part of the coordinator the transport needs.
type Hub interface {
	RegisterClient(c *core.Client)
	UnregisterClient(c *core.Client)
	Rooms(ctx context.Context) ([]core.RoomInfo, error)
	Room(ctx context.Context, id string) (core.RoomInfo, bool, error)
}

// NewServer builds the HTTP server: the websocket gateway, room inspection
// API, health and metrics endpoints.
func NewServer(hub Hub, cfg *config.Config, logger *zerolog.Logger, m *metrics.Metrics) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg, logger)))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api")
	if jwt := jwtConfig(cfg); jwt.Enabled() {
		api.Use(AuthMiddleware(jwt, logger))
	}
	rooms := NewRoomHandlers(hub, logger)
	api.GET("/rooms", rooms.ListRooms)
	api.GET("/rooms/:id", rooms.GetRoom)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
