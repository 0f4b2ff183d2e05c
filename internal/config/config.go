package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/roomsync-server/internal/state"
)

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	ClientBuffer       int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTRequired bool   `mapstructure:"jwt_required" yaml:"jwt_required"`

	Room     RoomConfig     `mapstructure:"room" yaml:"room"`
	State    StateConfig    `mapstructure:"state" yaml:"state"`
	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
	LiveKit  LiveKitConfig  `mapstructure:"livekit" yaml:"livekit"`
}

// RoomConfig controls room lifecycle.
type RoomConfig struct {
	IdleThreshold   time.Duration `mapstructure:"idle_threshold" yaml:"idle_threshold"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	MaxParticipants int           `mapstructure:"max_participants" yaml:"max_participants"`
}

// StateConfig selects the shared-state merge policy.
type StateConfig struct {
	Merge   string `mapstructure:"merge" yaml:"merge"`
	Initial string `mapstructure:"initial" yaml:"initial"`
}

// PresenceConfig selects how status changes are broadcast.
type PresenceConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// LiveKitConfig enables media credentials for voice rooms when URL is set.
type LiveKitConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	APISecret string        `mapstructure:"api_secret" yaml:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Enabled reports whether a LiveKit backend is configured.
func (l LiveKitConfig) Enabled() bool {
	return l.URL != ""
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		MaxMessageBytes:    1 << 20,
		RateLimitPerMinute: 0,
		ClientBuffer:       256,
		AllowedOrigins:     []string{"*"},
		Room: RoomConfig{
			IdleThreshold: 24 * time.Hour,
			SweepInterval: time.Hour,
		},
		State: StateConfig{
			Merge: state.PolicyReplace,
		},
		Presence: PresenceConfig{
			Mode: "diff",
		},
		LiveKit: LiveKitConfig{
			TokenTTL: time.Hour,
		},
	}
}

// Validate reports configuration that cannot be served.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Room.IdleThreshold < 0 || c.Room.SweepInterval < 0 {
		errs = append(errs, errors.New("room durations must not be negative"))
	}
	if c.Room.MaxParticipants < 0 {
		errs = append(errs, errors.New("room.max_participants must not be negative"))
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, errors.New("max_message_bytes must be positive"))
	}
	if !state.Valid(c.State.Merge) {
		errs = append(errs, fmt.Errorf("unknown state.merge %q", c.State.Merge))
	}
	switch c.Presence.Mode {
	case "", "diff", "snapshot":
	default:
		errs = append(errs, fmt.Errorf("unknown presence.mode %q", c.Presence.Mode))
	}
	if c.JWTRequired && c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_required needs jwt_secret"))
	}
	if c.LiveKit.Enabled() && (c.LiveKit.APIKey == "" || c.LiveKit.APISecret == "") {
		errs = append(errs, errors.New("livekit.url needs api_key and api_secret"))
	}
	return errors.Join(errs...)
}
