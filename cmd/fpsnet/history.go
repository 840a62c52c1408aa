package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/fpsnet/internal/storage"
)

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show recorded sessions",
	Long: `List the most recent sessions recorded with --history, or show the
connection events of one session.

Examples:
  fpsnet history
  fpsnet history --limit 5
  fpsnet history 6f1c0a2e-...`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of sessions to list")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)

	// Open history storage
	store, err := storage.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if len(args) == 1 {
		showSession(store, args[0])
		return
	}

	sessions, err := store.RecentSessions(flagLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving sessions: %v\n", err)
		return
	}

	fmt.Println("Recent sessions")
	fmt.Println()

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		fmt.Println()
		fmt.Println("Run 'fpsnet serve --history' or 'fpsnet solo --history' to record one.")
		return
	}

	// Print header
	fmt.Printf("  %-36s  %-6s  %-16s  %-8s  %-6s  %s\n", "ID", "Mode", "Started", "Ticks", "Events", "End")
	fmt.Printf("  %-36s  %-6s  %-16s  %-8s  %-6s  %s\n", "--", "----", "-------", "-----", "------", "---")

	for _, s := range sessions {
		end := s.EndReason
		if s.EndedAt.IsZero() {
			end = "(running)"
		}
		fmt.Printf("  %-36s  %-6s  %-16s  %-8d  %-6d  %s\n",
			s.ID, s.Mode, s.StartedAt.Format("2006-01-02 15:04"), s.Ticks, s.Events, end)
	}
}

func showSession(store *storage.Store, id string) {
	rec, err := store.SessionByID(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving session: %v\n", err)
		os.Exit(1)
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "Error: unknown session %q\n", id)
		fmt.Fprintln(os.Stderr, "Run 'fpsnet history' to list recorded sessions.")
		os.Exit(1)
	}

	fmt.Printf("Session %s\n", rec.ID)
	fmt.Printf("  Mode:     %s\n", rec.Mode)
	fmt.Printf("  Seed:     %d\n", rec.Seed)
	fmt.Printf("  Checksum: %s\n", rec.Checksum)
	fmt.Printf("  Started:  %s\n", rec.StartedAt.Format("2006-01-02 15:04:05"))
	if !rec.EndedAt.IsZero() {
		fmt.Printf("  Ended:    %s after %d ticks (%s)\n", rec.EndedAt.Format("2006-01-02 15:04:05"), rec.Ticks, rec.EndReason)
	}
	fmt.Println()

	events, err := store.SessionEvents(rec.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving events: %v\n", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Println("No connection events.")
		return
	}

	fmt.Printf("  %-8s  %-8s  %-5s  %-6s  %-16s  %s\n", "Tick", "Event", "Conn", "Entity", "Name", "Reason")
	fmt.Printf("  %-8s  %-8s  %-5s  %-6s  %-16s  %s\n", "----", "-----", "----", "------", "----", "------")
	for _, e := range events {
		entity := "-"
		if e.Entity != 0 {
			entity = fmt.Sprint(e.Entity)
		}
		fmt.Printf("  %-8d  %-8s  %-5d  %-6s  %-16s  %s\n", e.Tick, e.Kind, e.Conn, entity, e.Name, e.Reason)
	}
}
