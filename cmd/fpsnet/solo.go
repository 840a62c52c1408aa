package main

import (
	"github.com/spf13/cobra"
)

var soloCmd = &cobra.Command{
	Use:   "solo",
	Short: "Run server and client in one process",
	Long: `Run the authoritative server and a predicting client joined by an
in-process link with no latency. Useful for checking that prediction and
reconciliation agree exactly.

Examples:
  fpsnet solo --input wander --stop-after 600
  fpsnet solo --seed 42 --log-level debug`,
	Run: runSolo,
}

func init() {
	soloCmd.Flags().StringVar(&flagName, "name", "", "Player name")
	soloCmd.Flags().StringVar(&flagInput, "input", "", "Input source: idle, wander")
}

func runSolo(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)
	cfg.Mode = "solo"
	applyClientFlags(cmd, &cfg.Client.Name, &cfg.Client.Input)
	runSession(cfg)
}
