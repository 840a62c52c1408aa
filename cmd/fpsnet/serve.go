package main

import (
	"github.com/spf13/cobra"
)

var (
	flagListen     string
	flagMaxClients int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host an authoritative session",
	Long: `Generate a level and accept WebSocket clients on the listen address.

The server owns all entity state. Clients send sequenced movement commands
and receive snapshots of the world at the configured snapshot interval.

Examples:
  fpsnet serve                         # Listen on 127.0.0.1:7777 with a random seed
  fpsnet serve --listen :7777          # Listen on all interfaces
  fpsnet serve --seed 42 --history     # Fixed level, record the session

Clients connect with:
  fpsnet connect ws://localhost:7777/ws`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "127.0.0.1:7777", "WebSocket listen address (host:port)")
	serveCmd.Flags().IntVar(&flagMaxClients, "max-clients", 16, "Maximum connected clients")
}

func runServe(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)
	cfg.Mode = "server"
	if cmd.Flags().Changed("listen") {
		cfg.Server.Listen = flagListen
	}
	if cmd.Flags().Changed("max-clients") {
		cfg.Server.MaxClients = flagMaxClients
	}
	runSession(cfg)
}
