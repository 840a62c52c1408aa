package config

import (
	_ "embed"
	"time"

	"golang.org/x/time/rate"

	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/movement"
)

//go:embed defaults/session.yaml
var defaultSessionYAML []byte

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Mode: "solo",
		Server: ServerConfig{
			Listen:                "127.0.0.1:7777",
			MaxClients:            16,
			SnapshotInterval:      2,
			Timeout:               5 * time.Second,
			MaxInputsPerTick:      8,
			MaxExtrapolationTicks: 15,
			MaxPendingInputs:      64,
			InboundRate:           240,
			InboundBurst:          60,
			OutboxSize:            256,
		},
		Client: ClientConfig{
			Remote:           "ws://127.0.0.1:7777/ws",
			Name:             "player",
			Input:            "idle",
			InputRedundancy:  4,
			MaxPendingInputs: 128,
			SmoothingFactor:  0.2,
			SnapDistance:     2,
			StaleAfter:       500 * time.Millisecond,
			Timeout:          5 * time.Second,
			RemoteSamples:    32,
		},
		Level:    level.DefaultParams(),
		Movement: movement.DefaultParams(),
		History: HistoryConfig{
			Enabled: false,
			Path:    "~/.fpsnet/history.db",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

func rateLimit(perSecond float64) rate.Limit {
	return rate.Limit(perSecond)
}
