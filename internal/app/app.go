package app

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomsync-server/internal/config"
	"github.com/vovakirdan/roomsync-server/internal/core"
	"github.com/vovakirdan/roomsync-server/internal/media/livekit"
	"github.com/vovakirdan/roomsync-server/internal/metrics"
	"github.com/vovakirdan/roomsync-server/internal/state"
	transporthttp "github.com/vovakirdan/roomsync-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	merger, err := state.New(cfg.State.Merge, json.RawMessage(cfg.State.Initial))
	if err != nil {
		return nil, fmt.Errorf("init state merger: %w", err)
	}

	m := metrics.New()

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMerger(merger),
		core.WithMetrics(m),
		core.WithIdleEviction(cfg.Room.IdleThreshold, cfg.Room.SweepInterval),
		core.WithMaxParticipants(cfg.Room.MaxParticipants),
		core.WithPresenceMode(core.PresenceMode(cfg.Presence.Mode)),
	}

	if cfg.LiveKit.Enabled() {
		engine, err := livekit.New(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.URL, cfg.LiveKit.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("init livekit: %w", err)
		}
		opts = append(opts, core.WithMedia(engine))
		logger.Info().Str("url", cfg.LiveKit.URL).Msg("livekit media credentials enabled")
	}

	hub := core.NewHub(opts...)
	server := transporthttp.NewServer(hub, cfg, logger, m)

	logger.Info().
		Str("merge", cfg.State.Merge).
		Str("presence", cfg.Presence.Mode).
		Dur("idle_threshold", cfg.Room.IdleThreshold).
		Dur("sweep_interval", cfg.Room.SweepInterval).
		Msg("coordinator configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
