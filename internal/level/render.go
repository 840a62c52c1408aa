package level

import (
	"strings"

	"github.com/vovakirdan/fpsnet/internal/fixed"
)

// RenderOptions configures the top-down ASCII map.
type RenderOptions struct {
	CellSize  fixed.Fixed // Metres per character (default 1)
	WallChar  rune        // Character for walls (default '#')
	FloorChar rune        // Character for open floor (default '.')
	SpawnChar rune        // Character for spawn markers (default 'S')
}

// DefaultRenderOptions returns one character per metre.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		CellSize:  fixed.One,
		WallChar:  '#',
		FloorChar: '.',
		SpawnChar: 'S',
	}
}

// RenderASCII draws the level seen from above, north (z=0) at the top.
// A cell is drawn as wall when any wall box overlaps it.
func RenderASCII(g *Geometry, opt RenderOptions) string {
	def := DefaultRenderOptions()
	if opt.CellSize <= 0 {
		opt.CellSize = def.CellSize
	}
	if opt.WallChar == 0 {
		opt.WallChar = def.WallChar
	}
	if opt.FloorChar == 0 {
		opt.FloorChar = def.FloorChar
	}
	if opt.SpawnChar == 0 {
		opt.SpawnChar = def.SpawnChar
	}

	size := g.bounds.Size()
	cols := size.X.Div(opt.CellSize).Int()
	rows := size.Z.Div(opt.CellSize).Int()

	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = make([]rune, cols)
		for c := range grid[r] {
			grid[r][c] = opt.FloorChar
		}
	}

	cellOf := func(v fixed.Fixed) int { return v.Div(opt.CellSize).Int() }

	for _, w := range g.walls {
		for r := max(0, cellOf(w.Min.Z)); r < rows && r <= cellOf(w.Max.Z); r++ {
			for c := max(0, cellOf(w.Min.X)); c < cols && c <= cellOf(w.Max.X); c++ {
				cell := fixed.NewBox(fixed.V(opt.CellSize.MulInt(c), -fixed.One, opt.CellSize.MulInt(r)), fixed.V(opt.CellSize, 2*fixed.One, opt.CellSize))
				if w.Intersects(cell) {
					grid[r][c] = opt.WallChar
				}
			}
		}
	}

	for _, s := range g.spawns {
		r, c := cellOf(s.Z), cellOf(s.X)
		if r >= 0 && r < rows && c >= 0 && c < cols {
			grid[r][c] = opt.SpawnChar
		}
	}

	var sb strings.Builder
	for _, line := range grid {
		sb.WriteString(string(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}
