package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/predict"
	"github.com/vovakirdan/fpsnet/internal/session"
	"github.com/vovakirdan/fpsnet/internal/sim"
)

func TestDefaultSessionConfigBuilds(t *testing.T) {
	cfg, err := DefaultSessionConfig().Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg.Mode != session.ModeSolo {
		t.Errorf("Mode = %v, expected solo", cfg.Mode)
	}
	if got, want := cfg.Server.TimeoutTicks, sim.DefaultConfig().TimeoutTicks; got != want {
		t.Errorf("server TimeoutTicks = %d, expected %d", got, want)
	}
	def := predict.DefaultConfig()
	if cfg.Client.StaleTicks != def.StaleTicks || cfg.Client.TimeoutTicks != def.TimeoutTicks {
		t.Errorf("client ticks = %d/%d, expected %d/%d",
			cfg.Client.StaleTicks, cfg.Client.TimeoutTicks, def.StaleTicks, def.TimeoutTicks)
	}
	if err := cfg.Server.Validate(); err != nil {
		t.Errorf("server config invalid: %v", err)
	}
	if err := cfg.Client.Validate(); err != nil {
		t.Errorf("client config invalid: %v", err)
	}
}

func TestEmbeddedDefaultsMatch(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultSessionConfig()
	if cfg.Server != def.Server || cfg.Client != def.Client || cfg.History != def.History || cfg.Log != def.Log {
		t.Errorf("embedded defaults differ:\n got %+v\nwant %+v", cfg, def)
	}
	if cfg.Level != def.Level {
		t.Errorf("embedded level = %+v, expected %+v", cfg.Level, def.Level)
	}
	if cfg.Movement.TickRate != def.Movement.TickRate || cfg.Movement.WalkSpeed != def.Movement.WalkSpeed {
		t.Errorf("embedded movement = %+v", cfg.Movement)
	}
}

func TestLoadCustomOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	data := []byte(`mode: server
seed: 1234
server:
  listen: 0.0.0.0:9000
  timeout: 2s
client:
  stale_after: 250ms
movement:
  tick_rate: 30
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode != "server" || cfg.Seed != 1234 || cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Server.MaxClients != 16 || cfg.Client.InputRedundancy != 4 {
		t.Error("keys missing from the file should keep their defaults")
	}

	built, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if built.Server.TimeoutTicks != 60 {
		t.Errorf("2s at 30 Hz = %d ticks, expected 60", built.Server.TimeoutTicks)
	}
	if built.Client.StaleTicks != 7 {
		t.Errorf("250ms at 30 Hz = %d ticks, expected 7", built.Client.StaleTicks)
	}
	if built.Server.Movement.TickRate != 30 || built.Listen != "0.0.0.0:9000" {
		t.Errorf("built = %+v", built)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing custom config should fail")
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("malformed config should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SessionConfig)
		want   error
	}{
		{"solo defaults", func(c *SessionConfig) {}, nil},
		{"unknown mode", func(c *SessionConfig) { c.Mode = "host" }, session.ErrInvalidMode},
		{"seed too large", func(c *SessionConfig) { c.Seed = level.MaxSeed + 1 }, level.ErrInvalidSeed},
		{"client ignores seed", func(c *SessionConfig) { c.Mode = "client"; c.Seed = level.MaxSeed + 1 }, nil},
		{"listen without port", func(c *SessionConfig) { c.Mode = "server"; c.Server.Listen = "localhost" }, ErrInvalidAddress},
		{"listen any port", func(c *SessionConfig) { c.Mode = "server"; c.Server.Listen = ":7777" }, nil},
		{"remote http", func(c *SessionConfig) { c.Mode = "client"; c.Client.Remote = "http://host:1/ws" }, ErrInvalidAddress},
		{"remote without host", func(c *SessionConfig) { c.Mode = "client"; c.Client.Remote = "ws:///ws" }, ErrInvalidAddress},
		{"remote wss", func(c *SessionConfig) { c.Mode = "client"; c.Client.Remote = "wss://example.com/ws" }, nil},
		{"unknown input", func(c *SessionConfig) { c.Client.Input = "keyboard" }, ErrInvalidValue},
		{"zero tick rate", func(c *SessionConfig) { c.Movement.TickRate = 0 }, ErrInvalidValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultSessionConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.want == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() error = %v, expected %v", err, tc.want)
			}
		})
	}
}

func TestTicks(t *testing.T) {
	tests := []struct {
		d    time.Duration
		rate int
		want int
	}{
		{5 * time.Second, 60, 300},
		{500 * time.Millisecond, 60, 30},
		{time.Millisecond, 60, 1},
		{0, 60, 1},
	}
	for _, tc := range tests {
		if got := ticks(tc.d, tc.rate); got != tc.want {
			t.Errorf("ticks(%v, %d) = %d, expected %d", tc.d, tc.rate, got, tc.want)
		}
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := ExpandHome("~/.fpsnet/history.db"); got != filepath.Join(home, ".fpsnet", "history.db") {
		t.Errorf("ExpandHome() = %q", got)
	}
	if got := ExpandHome("/tmp/x.db"); got != "/tmp/x.db" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := ExpandHome("~user/x"); got != "~user/x" {
		t.Errorf("~user should not expand: %q", got)
	}
}
