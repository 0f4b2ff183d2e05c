package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomsync-server/internal/app"
	"github.com/vovakirdan/roomsync-server/internal/config"
	"github.com/vovakirdan/roomsync-server/internal/log"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath    string
		addr          string
		logLevel      string
		idleThreshold time.Duration
		sweepInterval time.Duration
	)

	root := &cobra.Command{
		Use:           "roomsync-server",
		Short:         "Room-scoped real-time session coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := map[string]any{}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				overrides["addr"] = addr
			}
			if flags.Changed("log-level") {
				overrides["log_level"] = logLevel
			}
			if flags.Changed("idle-threshold") {
				overrides["room.idle_threshold"] = idleThreshold
			}
			if flags.Changed("sweep-interval") {
				overrides["room.sweep_interval"] = sweepInterval
			}

			bootLogger := log.New("info", "console")
			cfg, path, err := config.Load(bootLogger, configPath, overrides)
			if err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().Str("config", path).Str("version", version).Msg("starting roomsync server")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "path to config.yaml (created with defaults when missing)")
	root.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.Flags().DurationVar(&idleThreshold, "idle-threshold", 0, "evict rooms idle for longer than this")
	root.Flags().DurationVar(&sweepInterval, "sweep-interval", 0, "how often idle rooms are swept (0 disables)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return root
}
