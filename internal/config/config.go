// Package config provides YAML-based session configuration loading for
// fpsnet.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/movement"
	"github.com/vovakirdan/fpsnet/internal/predict"
	"github.com/vovakirdan/fpsnet/internal/session"
	"github.com/vovakirdan/fpsnet/internal/sim"
	"github.com/vovakirdan/fpsnet/internal/transport"
)

var (
	// ErrInvalidAddress is returned for an unusable listen address or server URL.
	ErrInvalidAddress = errors.New("config: invalid address")
	// ErrInvalidValue is returned for an out-of-range setting.
	ErrInvalidValue = errors.New("config: invalid value")
)

// SessionConfig contains all configuration for one run.
type SessionConfig struct {
	Mode      string          `yaml:"mode"`       // "server", "client" or "solo"
	Seed      uint64          `yaml:"seed"`       // 0 = random
	StopAfter uint64          `yaml:"stop_after"` // Ticks, 0 = run until stopped
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	Level     level.Params    `yaml:"level"`
	Movement  movement.Params `yaml:"movement"`
	History   HistoryConfig   `yaml:"history"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig defines the authoritative simulation and its listener.
type ServerConfig struct {
	Listen                string        `yaml:"listen"`
	MaxClients            int           `yaml:"max_clients"`
	SnapshotInterval      int           `yaml:"snapshot_interval"` // Ticks between snapshots
	Timeout               time.Duration `yaml:"timeout"`
	MaxInputsPerTick      int           `yaml:"max_inputs_per_tick"`
	MaxExtrapolationTicks int           `yaml:"max_extrapolation_ticks"`
	MaxPendingInputs      int           `yaml:"max_pending_inputs"`
	InboundRate           float64       `yaml:"inbound_rate"` // Unreliable messages per second per client
	InboundBurst          int           `yaml:"inbound_burst"`
	OutboxSize            int           `yaml:"outbox_size"`
}

// ClientConfig defines prediction and the connection to a remote server.
type ClientConfig struct {
	Remote           string        `yaml:"remote"` // ws:// URL of the server
	Name             string        `yaml:"name"`
	Input            string        `yaml:"input"` // "idle" or "wander"
	InputRedundancy  int           `yaml:"input_redundancy"`
	MaxPendingInputs int           `yaml:"max_pending_inputs"`
	SmoothingFactor  float32       `yaml:"smoothing_factor"`
	SnapDistance     float32       `yaml:"snap_distance"`
	StaleAfter       time.Duration `yaml:"stale_after"`
	Timeout          time.Duration `yaml:"timeout"`
	RemoteSamples    int           `yaml:"remote_samples"`
}

// HistoryConfig defines the session history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`  // Empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Validate checks the settings that cannot be checked by the components
// themselves.
func (c SessionConfig) Validate() error {
	mode, err := session.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	if mode.RunsServer() && c.Seed != 0 {
		if err := level.ValidateSeed(c.Seed); err != nil {
			return err
		}
	}
	if mode == session.ModeServer {
		if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
			return fmt.Errorf("%w: listen %q: %w", ErrInvalidAddress, c.Server.Listen, err)
		}
	}
	if mode == session.ModeClient {
		u, err := url.Parse(c.Client.Remote)
		if err != nil {
			return fmt.Errorf("%w: remote %q: %w", ErrInvalidAddress, c.Client.Remote, err)
		}
		if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("%w: remote %q must be a ws:// or wss:// URL", ErrInvalidAddress, c.Client.Remote)
		}
	}
	switch c.Client.Input {
	case "", "idle", "wander":
	default:
		return fmt.Errorf("%w: client input %q (want idle or wander)", ErrInvalidValue, c.Client.Input)
	}
	if c.Movement.TickRate < 1 {
		return fmt.Errorf("%w: tick rate %d", ErrInvalidValue, c.Movement.TickRate)
	}
	return nil
}

// ticks converts a duration to whole ticks, at least one.
func ticks(d time.Duration, tickRate int) int {
	n := int(d * time.Duration(tickRate) / time.Second)
	return max(1, n)
}

// Build validates the file settings and converts them into a session
// configuration.
func (c SessionConfig) Build() (session.Config, error) {
	if err := c.Validate(); err != nil {
		return session.Config{}, err
	}
	mode, _ := session.ParseMode(c.Mode)
	rate := c.Movement.TickRate

	ws := transport.DefaultWSOptions()
	if c.Server.InboundRate > 0 {
		ws.InboundRate = rateLimit(c.Server.InboundRate)
	}
	if c.Server.InboundBurst > 0 {
		ws.InboundBurst = c.Server.InboundBurst
	}
	if c.Server.OutboxSize > 0 {
		ws.OutboxSize = c.Server.OutboxSize
	}

	return session.Config{
		Mode:  mode,
		Seed:  c.Seed,
		Level: c.Level,
		Server: sim.Config{
			MaxClients:            c.Server.MaxClients,
			SnapshotInterval:      c.Server.SnapshotInterval,
			TimeoutTicks:          ticks(c.Server.Timeout, rate),
			MaxInputsPerTick:      c.Server.MaxInputsPerTick,
			MaxExtrapolationTicks: c.Server.MaxExtrapolationTicks,
			MaxPendingInputs:      c.Server.MaxPendingInputs,
			Movement:              c.Movement,
		},
		Client: predict.Config{
			Name:             c.Client.Name,
			MaxPendingInputs: c.Client.MaxPendingInputs,
			InputRedundancy:  c.Client.InputRedundancy,
			SmoothingFactor:  c.Client.SmoothingFactor,
			SnapDistance:     c.Client.SnapDistance,
			StaleTicks:       ticks(c.Client.StaleAfter, rate),
			TimeoutTicks:     ticks(c.Client.Timeout, rate),
			RemoteSamples:    c.Client.RemoteSamples,
		},
		WS:        ws,
		Listen:    c.Server.Listen,
		Remote:    c.Client.Remote,
		StopAfter: c.StopAfter,
	}, nil
}
