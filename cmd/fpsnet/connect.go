package main

import (
	"github.com/spf13/cobra"
)

var (
	flagName  string
	flagInput string
)

var connectCmd = &cobra.Command{
	Use:   "connect [url]",
	Short: "Join a remote session",
	Long: `Connect to a running server, rebuild its level from the announced seed
and play with client-side prediction.

Input sources:
  idle    - Stand still (default)
  wander  - Walk random headings, changing once per second

Examples:
  fpsnet connect ws://localhost:7777/ws
  fpsnet connect ws://10.0.0.5:7777/ws --name alice --input wander`,
	Args: cobra.MaximumNArgs(1),
	Run:  runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&flagName, "name", "", "Player name announced to the server")
	connectCmd.Flags().StringVar(&flagInput, "input", "", "Input source: idle, wander")
}

func runConnect(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	cfg.Mode = "client"
	if len(args) == 1 {
		cfg.Client.Remote = args[0]
	}
	applyClientFlags(cmd, &cfg.Client.Name, &cfg.Client.Input)
	runSession(cfg)
}

func applyClientFlags(cmd *cobra.Command, name, input *string) {
	if cmd.Flags().Changed("name") {
		*name = flagName
	}
	if cmd.Flags().Changed("input") {
		*input = flagInput
	}
}
