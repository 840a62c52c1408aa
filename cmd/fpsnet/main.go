// fpsnet runs a networked first-person movement session: an authoritative
// server, a predicting client, or both in one process.
//
// Usage:
//
//	fpsnet serve               - Host a session for WebSocket clients
//	fpsnet connect <url>       - Join a remote session
//	fpsnet solo                - Run server and client in one process
//	fpsnet level               - Preview the level generated from a seed
//	fpsnet history [id]        - Show recorded sessions
//
// Global flags:
//
//	--config <path>    - Session config YAML (default search: ~/.fpsnet/configs, ./configs)
//	--seed <value>     - Level seed (0 = random)
//	--tick-rate <hz>   - Simulation tick rate
//	--db <path>        - History database path (default: ~/.fpsnet/history.db)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fpsnet/internal/config"
)

var (
	// Global flags
	flagConfig    string
	flagSeed      uint64
	flagTickRate  int
	flagStopAfter uint64
	flagLogLevel  string
	flagLogFile   string
	flagDBPath    string
	flagHistory   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fpsnet",
	Short: "fpsnet - Client-predicted multiplayer movement over WebSocket",
	Long: `fpsnet runs a deterministic first-person movement simulation with an
authoritative server, client-side prediction and server reconciliation.

Available commands:
  serve    - Host a session for WebSocket clients
  connect  - Join a remote session
  solo     - Run server and client in one process
  level    - Preview a generated level
  history  - Show recorded sessions

Examples:
  fpsnet serve --listen :7777 --seed 42
  fpsnet connect ws://localhost:7777/ws --name alice
  fpsnet solo --input wander --stop-after 600
  fpsnet level --seed 42
  fpsnet history`,
	SilenceUsage: true,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to session config YAML")
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 0, "Level seed (0 = random)")
	rootCmd.PersistentFlags().IntVar(&flagTickRate, "tick-rate", 60, "Simulation tick rate (ticks per second)")
	rootCmd.PersistentFlags().Uint64Var(&flagStopAfter, "stop-after", 0, "Stop after this many ticks (0 = run until interrupted)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to a rotating file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.fpsnet/history.db", "Path to session history database")
	rootCmd.PersistentFlags().BoolVar(&flagHistory, "history", false, "Record the session in the history database")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(soloCmd)
	rootCmd.AddCommand(levelCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the session config and applies the global flags the user
// set explicitly. Any error is fatal.
func loadConfig(cmd *cobra.Command) config.SessionConfig {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if flags.Changed("tick-rate") {
		cfg.Movement.TickRate = flagTickRate
	}
	if flags.Changed("stop-after") {
		cfg.StopAfter = flagStopAfter
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = flagLogFile
	}
	if flags.Changed("db") {
		cfg.History.Path = flagDBPath
	}
	if flags.Changed("history") {
		cfg.History.Enabled = flagHistory
	}
	return cfg
}
