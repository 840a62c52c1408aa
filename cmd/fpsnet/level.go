package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/fpsnet/internal/fixed"
	"github.com/vovakirdan/fpsnet/internal/level"
	"github.com/vovakirdan/fpsnet/internal/protocol"
)

var (
	flagCols  int
	flagRows  int
	flagPlain bool
)

var (
	wallStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	floorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	spawnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Preview the level generated from a seed",
	Long: `Generate the level for a seed and print a top-down map with its
checksum. Clients and servers with the same seed and level settings always
build this exact level.

Legend:
  #  wall
  .  floor
  S  spawn point

Examples:
  fpsnet level --seed 42
  fpsnet level --seed 42 --cols 6 --rows 6
  fpsnet level --seed 7 --plain > level.txt`,
	Run: runLevel,
}

func init() {
	levelCmd.Flags().IntVar(&flagCols, "cols", 0, "Rooms along X (0 = config value)")
	levelCmd.Flags().IntVar(&flagRows, "rows", 0, "Rooms along Z (0 = config value)")
	levelCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print without colors")
}

func runLevel(cmd *cobra.Command, _ []string) {
	cfg := loadConfig(cmd)
	params := cfg.Level
	if flagCols > 0 {
		params.Cols = flagCols
	}
	if flagRows > 0 {
		params.Rows = flagRows
	}

	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = level.RandomSeed(); err != nil {
			fmt.Fprintf(os.Stderr, "Error picking seed: %v\n", err)
			os.Exit(1)
		}
	}

	geo, err := level.Generate(seed, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Shrink the map to the terminal width
	width := 80
	if w, _, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
	}
	opt := level.DefaultRenderOptions()
	opt.CellSize = cellSizeFor(geo.Bounds().Size().X, width)

	ascii := level.RenderASCII(geo, opt)
	if !flagPlain {
		ascii = colorize(ascii, opt)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Level %d", seed)))
	fmt.Println()
	fmt.Print(ascii)
	fmt.Println()
	fmt.Printf("%s %s\n", labelStyle.Render("Checksum:"), protocol.FormatChecksum(geo.Checksum()))
	fmt.Printf("%s %dx%d (%s m)\n", labelStyle.Render("Rooms:   "), params.Cols, params.Rows, params.RoomSize)
	fmt.Printf("%s %d\n", labelStyle.Render("Doors:   "), len(geo.Doors()))
	fmt.Printf("%s %d\n", labelStyle.Render("Walls:   "), geo.Count(level.Wall))
	fmt.Printf("%s %d\n", labelStyle.Render("Spawns:  "), len(geo.Spawns()))
	if opt.CellSize != fixed.One {
		fmt.Printf("%s %s m per character\n", labelStyle.Render("Scale:   "), opt.CellSize)
	}
}

// cellSizeFor returns the smallest whole number of metres per character
// that fits extent into cols columns.
func cellSizeFor(extent fixed.Fixed, cols int) fixed.Fixed {
	cols = max(cols, 10)
	cell := 1
	for extent.DivInt(cell).Int() > cols {
		cell++
	}
	return fixed.FromInt(cell)
}

func colorize(ascii string, opt level.RenderOptions) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(ascii, "\n") {
		for _, r := range strings.TrimSuffix(line, "\n") {
			switch r {
			case opt.WallChar:
				sb.WriteString(wallStyle.Render(string(r)))
			case opt.SpawnChar:
				sb.WriteString(spawnStyle.Render(string(r)))
			default:
				sb.WriteString(floorStyle.Render(string(r)))
			}
		}
		if strings.HasSuffix(line, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
